package openbo

import (
	"context"
	"time"
)

// RoutingState is the closed set of per-tick routing outcomes. All
// variants are normal control flow; callers branch on them.
type RoutingState int

const (
	// RoutingOk carries a venue ready to take the order.
	RoutingOk RoutingState = iota
	// RoutingNoBrokers means no venue is configured at all.
	RoutingNoBrokers
	// RoutingWaitClosingPrice means the current second-of-minute is
	// outside some venue's trade window; try again next second.
	RoutingWaitClosingPrice
	// RoutingLowPayout means no venue offered a positive stake.
	RoutingLowPayout
	// RoutingLowDepositBalance means the chosen venue's deposit cannot
	// cover the stake.
	RoutingLowDepositBalance
	// RoutingCancel means the lookahead saw a better or equal payout
	// one minute ahead; defer the order.
	RoutingCancel
)

func (rs RoutingState) String() string {
	switch rs {
	case RoutingOk:
		return "OK"
	case RoutingNoBrokers:
		return "NO_BROKERS"
	case RoutingWaitClosingPrice:
		return "WAIT_CLOSING_PRICE"
	case RoutingLowPayout:
		return "LOW_PAYOUT"
	case RoutingLowDepositBalance:
		return "LOW_DEPOSIT_BALANCE"
	case RoutingCancel:
		return "CANCEL"
	default:
		panic("unknown routing state")
	}
}

// RoutingDecision carries the routing state plus, where applicable, the
// selected venue and its quote. Venue is set for Ok, LowDepositBalance
// and Cancel; Payout is additionally set for LowPayout as the best rate
// seen, for logging.
type RoutingDecision struct {
	State  RoutingState
	Venue  VenueService
	Amount float64
	Payout float64
}

// Selector picks the best-paying venue for a single timing window tick.
// Venue declaration order is the tie-breaker: payout comparison is
// strict, so the first declared venue wins equal payouts.
type Selector struct {
	logger Logger
	venues []VenueService
}

func NewSelector(logger Logger, venues ...VenueService) *Selector {
	return &Selector{
		logger: logger.WithField("component", "selector"),
		venues: venues,
	}
}

// Select runs one routing decision for the given quote request. No venue
// is quoted unless the request's second-of-minute lies inside every
// venue's trade window, so quoting load stays bounded to the shared
// window. At the last usable second of the minute, the venue with the
// tightest window is additionally quoted one minute ahead; a better or
// equal payout there cancels the current tick.
func (s *Selector) Select(ctx context.Context, request *QuoteRequest) *RoutingDecision {
	if len(s.venues) == 0 {
		return &RoutingDecision{State: RoutingNoBrokers}
	}

	second := request.Timestamp.UTC().Second()

	for _, venue := range s.venues {
		if !venue.TradeWindow().Contains(second) {
			return &RoutingDecision{State: RoutingWaitClosingPrice}
		}
	}

	quotes := make([]*Quote, len(s.venues))
	for i, venue := range s.venues {
		quote, err := venue.Quote(ctx, request)
		if err != nil {
			s.logger.Warningf(
				"could not quote venue [%v]: [%v]",
				venue.VenueName(),
				err,
			)
			quote = &Quote{Status: QuoteNoPayout}
		}

		if quote.Status != QuoteOk {
			quote.Amount = 0
		}

		quotes[i] = quote
	}

	bestIndex := -1
	bestPayoutSeen := 0.0
	for i, quote := range quotes {
		if quote.Payout > bestPayoutSeen {
			bestPayoutSeen = quote.Payout
		}

		if quote.Amount <= 0 {
			continue
		}

		if bestIndex < 0 || quote.Payout > quotes[bestIndex].Payout {
			bestIndex = i
		}
	}

	if next := s.lookahead(ctx, request, second); next != nil && next.Amount > 0 {
		if bestIndex < 0 || quotes[bestIndex].Payout <= next.Payout {
			return &RoutingDecision{
				State:  RoutingCancel,
				Venue:  s.venues[s.lookaheadVenue()],
				Amount: next.Amount,
				Payout: next.Payout,
			}
		}
	}

	if bestIndex < 0 {
		return &RoutingDecision{
			State:  RoutingLowPayout,
			Payout: bestPayoutSeen,
		}
	}

	venue := s.venues[bestIndex]
	quote := quotes[bestIndex]

	balance, err := venue.VenueBalance(ctx)
	if err != nil {
		s.logger.Warningf(
			"could not read venue [%v] balance: [%v]",
			venue.VenueName(),
			err,
		)
		balance = 0
	}

	if balance < quote.Amount {
		return &RoutingDecision{
			State:  RoutingLowDepositBalance,
			Venue:  venue,
			Amount: quote.Amount,
			Payout: quote.Payout,
		}
	}

	return &RoutingDecision{
		State:  RoutingOk,
		Venue:  venue,
		Amount: quote.Amount,
		Payout: quote.Payout,
	}
}

// lookahead quotes the tightest-window venue against the next minute's
// option. It returns nil when the current second is not that window's
// last usable second or when the next-minute quote is not actionable.
func (s *Selector) lookahead(
	ctx context.Context,
	request *QuoteRequest,
	second int,
) *Quote {
	venueIndex := s.lookaheadVenue()
	if venueIndex < 0 {
		return nil
	}

	venue := s.venues[venueIndex]
	if second != venue.TradeWindow().LastSecond() {
		return nil
	}

	nextRequest := *request
	nextRequest.Timestamp = request.Timestamp.UTC().
		Truncate(time.Minute).
		Add(time.Minute)

	quote, err := venue.Quote(ctx, &nextRequest)
	if err != nil {
		s.logger.Warningf(
			"could not quote venue [%v] one minute ahead: [%v]",
			venue.VenueName(),
			err,
		)
		return nil
	}

	if quote.Status != QuoteOk {
		return nil
	}

	return quote
}

func (s *Selector) lookaheadVenue() int {
	best := -1
	for i, venue := range s.venues {
		if best < 0 || venue.TradeWindow().Size() < s.venues[best].TradeWindow().Size() {
			best = i
		}
	}

	return best
}
