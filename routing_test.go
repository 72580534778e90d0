package openbo_test

import (
	"context"
	"testing"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/stretchr/testify/require"
)

// stubVenue answers quotes from canned values. Requests landing in the
// next minute (second zero while the stub is asked at a later second)
// get the lookahead quote when one is configured.
type stubVenue struct {
	name       string
	window     openbo.TradeWindow
	quote      openbo.Quote
	nextQuote  *openbo.Quote
	balance    float64
	quoteCalls int
}

func (sv *stubVenue) VenueName() string {
	return sv.name
}

func (sv *stubVenue) TradeWindow() openbo.TradeWindow {
	return sv.window
}

func (sv *stubVenue) Quote(
	ctx context.Context,
	request *openbo.QuoteRequest,
) (*openbo.Quote, error) {
	sv.quoteCalls++

	if sv.nextQuote != nil && request.Timestamp.UTC().Second() == 0 {
		quote := *sv.nextQuote
		return &quote, nil
	}

	quote := sv.quote
	return &quote, nil
}

func (sv *stubVenue) VenueBalance(ctx context.Context) (float64, error) {
	return sv.balance, nil
}

func (sv *stubVenue) SubmitOrder(
	ctx context.Context,
	order *openbo.VenueOrder,
	listener openbo.OutcomeListener,
) error {
	return nil
}

func quoteRequestAt(second int) *openbo.QuoteRequest {
	return &openbo.QuoteRequest{
		Symbol:      "EURUSD",
		Timestamp:   time.Date(2020, 6, 15, 12, 0, second, 0, time.UTC),
		Duration:    3 * time.Minute,
		Balance:     1000,
		Winrate:     0.7,
		Attenuation: 0.4,
	}
}

func TestSelect_NoBrokers(t *testing.T) {
	selector := openbo.NewSelector(&noopLogger{})

	decision := selector.Select(context.Background(), quoteRequestAt(0))

	require.Equal(t, openbo.RoutingNoBrokers, decision.State)
}

func TestSelect_WaitClosingPriceOutsideWindow(t *testing.T) {
	wide := &stubVenue{
		name:    "wide",
		window:  openbo.NewTradeWindow(58, 59, 0),
		quote:   openbo.Quote{Amount: 50, Payout: 0.85},
		balance: 1000,
	}
	tight := &stubVenue{
		name:    "tight",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 50, Payout: 0.85},
		balance: 1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, wide, tight)

	// Second 58 is inside the wide window but outside the tight one;
	// no venue may be quoted at all.
	decision := selector.Select(context.Background(), quoteRequestAt(58))

	require.Equal(t, openbo.RoutingWaitClosingPrice, decision.State)
	require.Zero(t, wide.quoteCalls)
	require.Zero(t, tight.quoteCalls)
}

func TestSelect_HighestPayoutWins(t *testing.T) {
	low := &stubVenue{
		name:    "low",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 50, Payout: 0.80},
		balance: 1000,
	}
	high := &stubVenue{
		name:    "high",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 40, Payout: 0.90},
		balance: 1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, low, high)

	decision := selector.Select(context.Background(), quoteRequestAt(0))

	require.Equal(t, openbo.RoutingOk, decision.State)
	require.Equal(t, "high", decision.Venue.VenueName())
	require.InDelta(t, 40.0, decision.Amount, 1e-9)
	require.InDelta(t, 0.90, decision.Payout, 1e-9)
}

func TestSelect_EqualPayoutPrefersFirstDeclared(t *testing.T) {
	first := &stubVenue{
		name:    "first",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 50, Payout: 0.85},
		balance: 1000,
	}
	second := &stubVenue{
		name:    "second",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 50, Payout: 0.85},
		balance: 1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, first, second)

	for i := 0; i < 5; i++ {
		decision := selector.Select(context.Background(), quoteRequestAt(0))

		require.Equal(t, openbo.RoutingOk, decision.State)
		require.Equal(t, "first", decision.Venue.VenueName())
	}
}

func TestSelect_ZeroStakeVenueNeverWins(t *testing.T) {
	noStake := &stubVenue{
		name:    "no-stake",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 0, Payout: 0.95},
		balance: 1000,
	}
	sized := &stubVenue{
		name:    "sized",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 50, Payout: 0.80},
		balance: 1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, noStake, sized)

	decision := selector.Select(context.Background(), quoteRequestAt(0))

	require.Equal(t, openbo.RoutingOk, decision.State)
	require.Equal(t, "sized", decision.Venue.VenueName())
}

func TestSelect_LowPayout(t *testing.T) {
	venue := &stubVenue{
		name:   "venue",
		window: openbo.NewTradeWindow(59, 0),
		quote: openbo.Quote{
			Payout: 0.5,
			Status: openbo.QuoteNoPayout,
		},
		balance: 1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, venue)

	decision := selector.Select(context.Background(), quoteRequestAt(0))

	require.Equal(t, openbo.RoutingLowPayout, decision.State)
	require.InDelta(t, 0.5, decision.Payout, 1e-9)
}

func TestSelect_LowDepositBalance(t *testing.T) {
	venue := &stubVenue{
		name:    "venue",
		window:  openbo.NewTradeWindow(59, 0),
		quote:   openbo.Quote{Amount: 50, Payout: 0.85},
		balance: 10,
	}

	selector := openbo.NewSelector(&noopLogger{}, venue)

	decision := selector.Select(context.Background(), quoteRequestAt(0))

	require.Equal(t, openbo.RoutingLowDepositBalance, decision.State)
	require.Equal(t, "venue", decision.Venue.VenueName())
	require.InDelta(t, 50.0, decision.Amount, 1e-9)
}

func TestSelect_CancelOnBetterNextMinutePayout(t *testing.T) {
	venue := &stubVenue{
		name:      "venue",
		window:    openbo.NewTradeWindow(59, 0),
		quote:     openbo.Quote{Amount: 50, Payout: 0.80},
		nextQuote: &openbo.Quote{Amount: 50, Payout: 0.85},
		balance:   1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, venue)

	decision := selector.Select(context.Background(), quoteRequestAt(59))

	require.Equal(t, openbo.RoutingCancel, decision.State)
	require.InDelta(t, 0.85, decision.Payout, 1e-9)
	require.Equal(t, 2, venue.quoteCalls)
}

func TestSelect_NoCancelOnWorseNextMinutePayout(t *testing.T) {
	venue := &stubVenue{
		name:      "venue",
		window:    openbo.NewTradeWindow(59, 0),
		quote:     openbo.Quote{Amount: 50, Payout: 0.80},
		nextQuote: &openbo.Quote{Amount: 50, Payout: 0.75},
		balance:   1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, venue)

	decision := selector.Select(context.Background(), quoteRequestAt(59))

	require.Equal(t, openbo.RoutingOk, decision.State)
	require.InDelta(t, 0.80, decision.Payout, 1e-9)
	require.Equal(t, 2, venue.quoteCalls)
}

func TestSelect_NoLookaheadBeforeLastSecond(t *testing.T) {
	venue := &stubVenue{
		name:      "venue",
		window:    openbo.NewTradeWindow(58, 59, 0),
		quote:     openbo.Quote{Amount: 50, Payout: 0.80},
		nextQuote: &openbo.Quote{Amount: 50, Payout: 0.95},
		balance:   1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, venue)

	decision := selector.Select(context.Background(), quoteRequestAt(58))

	require.Equal(t, openbo.RoutingOk, decision.State)
	require.Equal(t, 1, venue.quoteCalls)
}

func TestSelect_LookaheadUsesTightestWindowVenue(t *testing.T) {
	wide := &stubVenue{
		name:      "wide",
		window:    openbo.NewTradeWindow(58, 59, 0),
		quote:     openbo.Quote{Amount: 50, Payout: 0.80},
		nextQuote: &openbo.Quote{Amount: 50, Payout: 0.99},
		balance:   1000,
	}
	tight := &stubVenue{
		name:      "tight",
		window:    openbo.NewTradeWindow(59, 0),
		quote:     openbo.Quote{Amount: 50, Payout: 0.80},
		nextQuote: &openbo.Quote{Amount: 50, Payout: 0.70},
		balance:   1000,
	}

	selector := openbo.NewSelector(&noopLogger{}, wide, tight)

	// Only the tight venue is asked one minute ahead; its worse next
	// payout must not cancel, and the wide venue's better next payout
	// must not be consulted.
	decision := selector.Select(context.Background(), quoteRequestAt(59))

	require.Equal(t, openbo.RoutingOk, decision.State)
	require.Equal(t, 1, wide.quoteCalls)
	require.Equal(t, 2, tight.quoteCalls)
}
