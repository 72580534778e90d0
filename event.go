package openbo

import "fmt"

// Event is a human-readable notification about a ledger mutation.
// HolderName identifies the affected account holder; pool-wide events
// concern every eligible account at once and leave it empty.
type Event struct {
	HolderName string
	Payload    string
}

// NewBetOpenedEvent announces a freshly opened bet. The stake spans the
// whole account pool, so the event carries no holder name.
func NewBetOpenedEvent(venueName string, order *VenueOrder) *Event {
	return &Event{
		Payload: fmt.Sprintf(
			"New bet has been opened:\n"+
				"- Wager: %v\n"+
				"- Venue: %v\n"+
				"- Symbol: %v\n"+
				"- Direction: %v\n"+
				"- Amount: %.2f\n"+
				"- Payout: %.2f%%",
			order.WagerID,
			venueName,
			order.Symbol,
			order.Direction,
			order.Amount,
			order.Payout*100,
		),
	}
}

func NewBetSettledEvent(
	account *Account,
	status OutcomeStatus,
	amount float64,
	profit float64,
) *Event {
	return &Event{
		HolderName: account.HolderName,
		Payload: fmt.Sprintf(
			"Bet has been settled:\n"+
				"- Account: %v\n"+
				"- Result: %v\n"+
				"- Amount: %.2f\n"+
				"- Profit: %.2f\n"+
				"- Balance: %.2f",
			account.HolderName,
			status,
			amount,
			profit,
			account.Balance,
		),
	}
}

// EventService publishes events to an external notification transport.
type EventService interface {
	Publish(event *Event)
}
