package openbo

import (
	"context"
	"time"
)

// Direction of a binary option.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		panic("unknown direction")
	}
}

// ParseDirection converts a textual direction. Anything but "down"
// (case-insensitive) means Up.
func ParseDirection(value string) Direction {
	if value == "down" || value == "DOWN" {
		return Down
	}

	return Up
}

// QuoteStatus qualifies a venue quote.
type QuoteStatus int

const (
	// QuoteOk means the venue offers a payout and a sized stake.
	QuoteOk QuoteStatus = iota
	// QuoteNoPayout means the venue currently pays nothing worth
	// taking for these inputs.
	QuoteNoPayout
	// QuoteInvalidArgument means the request itself was malformed.
	QuoteInvalidArgument
)

func (qs QuoteStatus) String() string {
	switch qs {
	case QuoteOk:
		return "OK"
	case QuoteNoPayout:
		return "NO_PAYOUT"
	case QuoteInvalidArgument:
		return "INVALID_ARGUMENT"
	default:
		panic("unknown quote status")
	}
}

// QuoteRequest carries the inputs a venue needs to quote a payout and
// size a stake for one option. AccountCurrency tells the venue to quote
// against its local-currency deposit instead of the USD one.
type QuoteRequest struct {
	Symbol          string
	Timestamp       time.Time
	Duration        time.Duration
	AccountCurrency bool
	Balance         float64
	Winrate         float64
	Attenuation     float64
}

// Quote is a venue's answer: the stake it would accept and the payout
// rate it offers, e.g. 0.85 for an 85% payout.
type Quote struct {
	Amount float64
	Payout float64
	Status QuoteStatus
}

// TradeWindow is the set of seconds-of-minute at which a venue accepts
// orders on the next closing price, e.g. {58, 59, 0}.
type TradeWindow struct {
	seconds map[int]bool
}

func NewTradeWindow(seconds ...int) TradeWindow {
	window := TradeWindow{seconds: make(map[int]bool, len(seconds))}
	for _, second := range seconds {
		window.seconds[second] = true
	}

	return window
}

func (tw TradeWindow) Contains(second int) bool {
	return tw.seconds[second]
}

func (tw TradeWindow) Size() int {
	return len(tw.seconds)
}

// LastSecond returns the window's final second before the minute
// rollover, the only point at which a one-tick lookahead makes sense.
// Second zero belongs to the following minute and is excluded.
func (tw TradeWindow) LastSecond() int {
	last := -1
	for second := range tw.seconds {
		if second != 0 && second > last {
			last = second
		}
	}

	return last
}

// OutcomeStatus is the venue-reported settlement result of an order.
type OutcomeStatus int

const (
	OutcomeWin OutcomeStatus = iota
	OutcomeLoss
	OutcomeStandoff
	// OutcomeOpeningError means the order never opened on the venue
	// side; the reserved stake must be returned.
	OutcomeOpeningError
	OutcomeUnknown
)

func (os OutcomeStatus) String() string {
	switch os {
	case OutcomeWin:
		return "WIN"
	case OutcomeLoss:
		return "LOSS"
	case OutcomeStandoff:
		return "STANDOFF"
	case OutcomeOpeningError:
		return "OPENING_ERROR"
	case OutcomeUnknown:
		return "UNKNOWN"
	default:
		panic("unknown outcome status")
	}
}

// OutcomeListener receives asynchronous settlement reports keyed by the
// wager id assigned at allocation time.
type OutcomeListener func(wagerID string, status OutcomeStatus, timestamp time.Time)

// VenueOrder is a sized order submitted to a venue.
type VenueOrder struct {
	WagerID   string
	Symbol    string
	Direction Direction
	Amount    float64
	Payout    float64
	Duration  time.Duration
	Timestamp time.Time
}

// VenueService is the boundary to a single execution venue. Wire
// protocol and authentication live behind implementations.
type VenueService interface {
	VenueName() string

	TradeWindow() TradeWindow

	Quote(ctx context.Context, request *QuoteRequest) (*Quote, error)

	VenueBalance(ctx context.Context) (float64, error)

	SubmitOrder(
		ctx context.Context,
		order *VenueOrder,
		listener OutcomeListener,
	) error
}
