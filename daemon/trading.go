package daemon

import (
	"context"
	"fmt"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/NewYaroslav/open-bo-api/metrics"
)

const tradingLoopTick = 1 * time.Second

// Config drives the trading loop.
type Config struct {
	Demo            bool
	AccountCurrency bool
	Duration        time.Duration
	Precision       int
}

// Worker runs the foreground trading loop: once per second it polls the
// signal source, asks the routing selector for a venue and, on an
// actionable decision, reserves stake on the ledger and submits the
// order. At most one order is opened per timing window.
type Worker struct {
	logger          openbo.Logger
	config          *Config
	ledger          *openbo.Ledger
	selector        *openbo.Selector
	signalGenerator openbo.SignalGenerator
	idService       openbo.IDService
	eventService    openbo.EventService

	lastClosingMinute time.Time

	errChan chan error
}

func RunWorker(
	ctx context.Context,
	logger openbo.Logger,
	config *Config,
	ledger *openbo.Ledger,
	selector *openbo.Selector,
	signalGenerator openbo.SignalGenerator,
	idService openbo.IDService,
	eventService openbo.EventService,
) *Worker {
	worker := &Worker{
		logger:          logger.WithField("component", "trading-worker"),
		config:          config,
		ledger:          ledger,
		selector:        selector,
		signalGenerator: signalGenerator,
		idService:       idService,
		eventService:    eventService,
		errChan:         make(chan error, 1),
	}

	go worker.loop(ctx)

	return worker
}

func (w *Worker) ErrChan() <-chan error {
	return w.errChan
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(tradingLoopTick)
	defer ticker.Stop()

	for {
		select {
		case tickTime := <-ticker.C:
			signal, exists := w.signalGenerator.Poll()
			if !exists {
				continue
			}

			if err := w.processSignal(ctx, signal, tickTime); err != nil {
				w.errChan <- fmt.Errorf(
					"error during signal processing: [%v]",
					err,
				)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) processSignal(
	ctx context.Context,
	signal *openbo.Signal,
	tickTime time.Time,
) error {
	// Ticks on either side of a minute boundary target the same closing
	// price, so the once-per-window gate keys on the nearest boundary:
	// second 59 of one minute and second 0 of the next share one key.
	closingMinute := tickTime.UTC().Round(time.Minute)
	if !w.lastClosingMinute.IsZero() && !closingMinute.After(w.lastClosingMinute) {
		return nil
	}

	request := &openbo.QuoteRequest{
		Symbol:          signal.Symbol,
		Timestamp:       tickTime,
		Duration:        w.config.Duration,
		AccountCurrency: w.config.AccountCurrency,
		Balance:         w.ledger.Balance(w.config.Demo),
		Winrate:         signal.Winrate,
		Attenuation:     signal.Attenuation,
	}

	decision := w.selector.Select(ctx, request)

	metrics.RoutingDecisions.WithLabelValues(decision.State.String()).Inc()

	switch decision.State {
	case openbo.RoutingNoBrokers:
		return fmt.Errorf("no venues configured")
	case openbo.RoutingWaitClosingPrice:
		return nil
	case openbo.RoutingCancel:
		w.logger.Debugf(
			"deferring [%v]: better payout expected next minute",
			signal.Symbol,
		)
		return nil
	case openbo.RoutingLowPayout:
		w.logger.Infof(
			"skipping [%v]: low payout [%v]",
			signal.Symbol,
			decision.Payout,
		)
		return nil
	case openbo.RoutingLowDepositBalance:
		w.logger.Warningf(
			"skipping [%v]: venue [%v] deposit below stake [%v]",
			signal.Symbol,
			decision.Venue.VenueName(),
			decision.Amount,
		)
		return nil
	}

	wagerID := w.idService.NewID().String()

	accepted := w.ledger.MakeBet(&openbo.BetRequest{
		WagerID:     wagerID,
		Amount:      decision.Amount,
		Strategy:    signal.Strategy,
		Demo:        w.config.Demo,
		Payout:      decision.Payout,
		Winrate:     signal.Winrate,
		Attenuation: signal.Attenuation,
		Timestamp:   tickTime,
		Precision:   w.config.Precision,
	})
	if !accepted {
		w.logger.Infof("no eligible accounts for signal [%v]", signal)
		return nil
	}

	order := &openbo.VenueOrder{
		WagerID:   wagerID,
		Symbol:    signal.Symbol,
		Direction: signal.Direction,
		Amount:    decision.Amount,
		Payout:    decision.Payout,
		Duration:  w.config.Duration,
		Timestamp: tickTime,
	}

	if err := decision.Venue.SubmitOrder(ctx, order, w.handleOutcome); err != nil {
		// The order never opened; return the reserved stake.
		w.ledger.SetStandoff(wagerID, time.Now(), nil)
		w.ledger.Push(false)

		w.logger.Errorf("could not submit order [%v]: [%v]", wagerID, err)

		return nil
	}

	w.lastClosingMinute = closingMinute
	w.ledger.Push(false)

	metrics.BetsOpened.Inc()
	metrics.LedgerBalance.
		WithLabelValues(mode(w.config.Demo)).
		Set(w.ledger.Balance(w.config.Demo))

	if w.eventService != nil {
		w.eventService.Publish(
			openbo.NewBetOpenedEvent(decision.Venue.VenueName(), order),
		)
	}

	w.logger.Infof(
		"bet [%v] on [%v] opened at venue [%v] for [%v]",
		wagerID,
		signal.Symbol,
		decision.Venue.VenueName(),
		decision.Amount,
	)

	return nil
}

func (w *Worker) handleOutcome(
	wagerID string,
	status openbo.OutcomeStatus,
	timestamp time.Time,
) {
	callback := func(account *openbo.Account, amount, profit float64) {
		if w.eventService != nil {
			w.eventService.Publish(
				openbo.NewBetSettledEvent(account, status, amount, profit),
			)
		}
	}

	switch status {
	case openbo.OutcomeWin:
		w.ledger.SetWin(wagerID, timestamp, callback)
	case openbo.OutcomeLoss:
		w.ledger.SetLoss(wagerID, timestamp, callback)
	case openbo.OutcomeStandoff, openbo.OutcomeOpeningError:
		w.ledger.SetStandoff(wagerID, timestamp, callback)
	default:
		// An unknown outcome keeps the wager pending; the venue may
		// still report a final result.
		w.logger.Warningf("wager [%v] reported unknown outcome", wagerID)
		return
	}

	metrics.Settlements.WithLabelValues(status.String()).Inc()
	metrics.LedgerBalance.
		WithLabelValues(mode(w.config.Demo)).
		Set(w.ledger.Balance(w.config.Demo))

	w.ledger.Push(false)
}

func mode(demo bool) string {
	if demo {
		return "demo"
	}

	return "real"
}
