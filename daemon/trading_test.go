package daemon_test

import (
	"context"
	"testing"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/NewYaroslav/open-bo-api/daemon"
	"github.com/NewYaroslav/open-bo-api/inmem"
	"github.com/NewYaroslav/open-bo-api/paper"
	"github.com/NewYaroslav/open-bo-api/uuid"
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

type fixedSignalGenerator struct {
	signal *openbo.Signal
}

func (fsg *fixedSignalGenerator) Poll() (*openbo.Signal, bool) {
	return fsg.signal, true
}

// collectingEventService records published events.
type collectingEventService struct {
	eventChan chan *openbo.Event
}

func (ces *collectingEventService) Publish(event *openbo.Event) {
	ces.eventChan <- event
}

func allSeconds() []int {
	seconds := make([]int, 60)
	for i := range seconds {
		seconds[i] = i
	}

	return seconds
}

// Runs the full loop against a simulated venue rigged to always win:
// the worker must open one wager, settle it as a win and grow the pool
// by the full expected profit.
func TestWorker_OpensAndSettlesBet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping trading loop test in short mode")
	}

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	account := openbo.NewAccount()
	account.ID = 1
	account.HolderName = "holder"
	account.StartBalance = 4000
	account.Balance = 4000
	account.KellyAttenuationLimiter = 1.0
	account.Strategies = map[string]bool{"trend": true}
	account.Enabled = true

	repository := inmem.NewAccountRepository()
	require.NoError(t, repository.CreateAccount(account))

	ledger, err := openbo.RunLedger(ctx, repository, &noopLogger{})
	require.NoError(t, err)

	venue := paper.NewVenue(&noopLogger{}, &paper.Config{
		Name:          "paper",
		WindowSeconds: allSeconds(),
		Payout:        1.0,
		MinAmount:     1,
		Balance:       100000,
		WinChance:     1.0,
		Seed:          1,
	})

	selector := openbo.NewSelector(&noopLogger{}, venue)

	eventService := &collectingEventService{
		eventChan: make(chan *openbo.Event, 16),
	}

	daemon.RunWorker(
		ctx,
		&noopLogger{},
		&daemon.Config{
			Demo:      true,
			Duration:  50 * time.Millisecond,
			Precision: 2,
		},
		ledger,
		selector,
		&fixedSignalGenerator{
			signal: &openbo.Signal{
				Symbol:      "EURUSD",
				Direction:   openbo.Up,
				Strategy:    "trend",
				Winrate:     0.75,
				Attenuation: 1.0,
			},
		},
		&uuid.IDService{},
		eventService,
	)

	// The venue quotes 4000 * 0.5 = 2000; a win at payout 1.0 grows
	// the pool to 6000.
	require.Eventually(
		t,
		func() bool {
			balance := ledger.Balance(true)
			return balance > 5999.9 && balance < 6000.1
		},
		15*time.Second,
		50*time.Millisecond,
	)

	accountCopy, exists := ledger.Account(1)
	require.True(t, exists)
	require.Equal(t, uint64(1), accountCopy.Wins)
	require.Empty(t, accountCopy.PendingStakes)

	// Opened and settled notifications were published.
	require.GreaterOrEqual(t, len(eventService.eventChan), 2)
}
