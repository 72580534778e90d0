package paper_test

import (
	"context"
	"testing"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/NewYaroslav/open-bo-api/paper"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (nl *noopLogger) Debugf(format string, args ...interface{})   {}
func (nl *noopLogger) Infof(format string, args ...interface{})    {}
func (nl *noopLogger) Warningf(format string, args ...interface{}) {}
func (nl *noopLogger) Errorf(format string, args ...interface{})   {}
func (nl *noopLogger) Fatalf(format string, args ...interface{})   {}

func (nl *noopLogger) WithField(key string, value interface{}) openbo.Logger {
	return nl
}

func (nl *noopLogger) WithFields(fields map[string]interface{}) openbo.Logger {
	return nl
}

func newTestVenue(config *paper.Config) *paper.Venue {
	if config.Name == "" {
		config.Name = "paper"
	}
	if config.Seed == 0 {
		config.Seed = 1
	}

	return paper.NewVenue(&noopLogger{}, config)
}

func quoteRequest() *openbo.QuoteRequest {
	return &openbo.QuoteRequest{
		Symbol:      "EURUSD",
		Timestamp:   time.Date(2020, 6, 15, 12, 0, 59, 0, time.UTC),
		Duration:    time.Minute,
		Balance:     1000,
		Winrate:     0.75,
		Attenuation: 1.0,
	}
}

func TestQuote(t *testing.T) {
	venue := newTestVenue(&paper.Config{
		WindowSeconds: []int{59, 0},
		Payout:        1.0,
		MinAmount:     1,
		Balance:       10000,
	})

	quote, err := venue.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	require.Equal(t, openbo.QuoteOk, quote.Status)
	require.InDelta(t, 1.0, quote.Payout, 1e-9)
	// 1000 * 1.0 * ((2 * 0.75 - 1) / 1)
	require.InDelta(t, 500.0, quote.Amount, 1e-9)
}

func TestQuote_InvalidArgument(t *testing.T) {
	venue := newTestVenue(&paper.Config{Payout: 0.8, Balance: 10000})

	request := quoteRequest()
	request.Symbol = ""

	quote, err := venue.Quote(context.Background(), request)

	require.NoError(t, err)
	require.Equal(t, openbo.QuoteInvalidArgument, quote.Status)
}

func TestQuote_NoPayoutOnNonPositiveEdge(t *testing.T) {
	venue := newTestVenue(&paper.Config{Payout: 0.8, Balance: 10000})

	request := quoteRequest()
	request.Winrate = 0.5

	quote, err := venue.Quote(context.Background(), request)

	require.NoError(t, err)
	require.Equal(t, openbo.QuoteNoPayout, quote.Status)
	require.Zero(t, quote.Amount)
}

func TestQuote_PayoutBySecond(t *testing.T) {
	venue := newTestVenue(&paper.Config{
		Payout:         0.8,
		PayoutBySecond: map[int]float64{59: 0.9},
		Balance:        10000,
	})

	quote, err := venue.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	require.InDelta(t, 0.9, quote.Payout, 1e-9)
}

func TestQuote_BelowMinAmount(t *testing.T) {
	venue := newTestVenue(&paper.Config{
		Payout:    1.0,
		MinAmount: 1000,
		Balance:   10000,
	})

	quote, err := venue.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	require.Equal(t, openbo.QuoteOk, quote.Status)
	require.Zero(t, quote.Amount)
}

func TestSubmitOrder_WinSettlement(t *testing.T) {
	venue := newTestVenue(&paper.Config{
		Payout:    0.8,
		Balance:   1000,
		WinChance: 1.0,
	})

	type outcome struct {
		wagerID string
		status  openbo.OutcomeStatus
	}

	outcomeChan := make(chan outcome, 1)

	err := venue.SubmitOrder(
		context.Background(),
		&openbo.VenueOrder{
			WagerID:  "wager-1",
			Symbol:   "EURUSD",
			Amount:   100,
			Payout:   0.8,
			Duration: 10 * time.Millisecond,
		},
		func(wagerID string, status openbo.OutcomeStatus, timestamp time.Time) {
			outcomeChan <- outcome{wagerID, status}
		},
	)
	require.NoError(t, err)

	select {
	case settled := <-outcomeChan:
		require.Equal(t, "wager-1", settled.wagerID)
		require.Equal(t, openbo.OutcomeWin, settled.status)
	case <-time.After(5 * time.Second):
		t.Fatal("order was not settled")
	}

	balance, err := venue.VenueBalance(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 1080.0, balance, 1e-9)
}

func TestSubmitOrder_RejectsOverdraft(t *testing.T) {
	venue := newTestVenue(&paper.Config{Payout: 0.8, Balance: 50})

	err := venue.SubmitOrder(
		context.Background(),
		&openbo.VenueOrder{
			WagerID:  "wager-1",
			Amount:   100,
			Duration: time.Minute,
		},
		func(wagerID string, status openbo.OutcomeStatus, timestamp time.Time) {
			t.Errorf("listener must not be called")
		},
	)

	require.Error(t, err)
}
