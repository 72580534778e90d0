package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
)

// Config describes a simulated venue.
type Config struct {
	Name string

	// Seconds-of-minute at which the venue accepts orders.
	WindowSeconds []int

	// Base payout rate, optionally overridden per second-of-minute.
	Payout         float64
	PayoutBySecond map[int]float64

	MinAmount float64
	Balance   float64

	// Probability that an open order settles as a win.
	WinChance float64

	// Zero seeds from the wall clock.
	Seed int64
}

// Venue simulates a binary-options execution venue: it quotes a locally
// computed stake and payout, and settles submitted orders at expiry with
// a randomized outcome against its own deposit balance.
type Venue struct {
	logger openbo.Logger
	config *Config
	window openbo.TradeWindow

	balanceMutex sync.Mutex
	balance      float64

	rngMutex sync.Mutex
	rng      *rand.Rand
}

func NewVenue(logger openbo.Logger, config *Config) *Venue {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Venue{
		logger:  logger.WithField("venue", config.Name),
		config:  config,
		window:  openbo.NewTradeWindow(config.WindowSeconds...),
		balance: config.Balance,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (v *Venue) VenueName() string {
	return v.config.Name
}

func (v *Venue) TradeWindow() openbo.TradeWindow {
	return v.window
}

func (v *Venue) Quote(
	ctx context.Context,
	request *openbo.QuoteRequest,
) (*openbo.Quote, error) {
	if len(request.Symbol) == 0 ||
		request.Balance < 0 ||
		request.Winrate < 0 ||
		request.Winrate > 1 {
		return &openbo.Quote{Status: openbo.QuoteInvalidArgument}, nil
	}

	payout := v.payoutAt(request.Timestamp)
	if payout <= 0 {
		return &openbo.Quote{Status: openbo.QuoteNoPayout}, nil
	}

	edge := (1.0+payout)*request.Winrate - 1.0
	if edge <= 0 {
		return &openbo.Quote{
			Payout: payout,
			Status: openbo.QuoteNoPayout,
		}, nil
	}

	amount := request.Balance * request.Attenuation * (edge / payout)
	if amount < v.config.MinAmount {
		amount = 0
	}

	return &openbo.Quote{
		Amount: amount,
		Payout: payout,
		Status: openbo.QuoteOk,
	}, nil
}

func (v *Venue) payoutAt(timestamp time.Time) float64 {
	if payout, exists := v.config.PayoutBySecond[timestamp.UTC().Second()]; exists {
		return payout
	}

	return v.config.Payout
}

func (v *Venue) VenueBalance(ctx context.Context) (float64, error) {
	v.balanceMutex.Lock()
	defer v.balanceMutex.Unlock()

	return v.balance, nil
}

// SubmitOrder debits the simulated deposit and settles the order with a
// randomized outcome once its duration elapses.
func (v *Venue) SubmitOrder(
	ctx context.Context,
	order *openbo.VenueOrder,
	listener openbo.OutcomeListener,
) error {
	v.balanceMutex.Lock()
	if order.Amount <= 0 || order.Amount > v.balance {
		v.balanceMutex.Unlock()
		return fmt.Errorf(
			"could not open order [%v]: amount [%v] exceeds balance",
			order.WagerID,
			order.Amount,
		)
	}
	v.balance -= order.Amount
	v.balanceMutex.Unlock()

	v.logger.Infof(
		"order [%v] opened for [%v] at payout [%v]",
		order.WagerID,
		order.Amount,
		order.Payout,
	)

	go func() {
		select {
		case <-time.After(order.Duration):
		case <-ctx.Done():
			listener(order.WagerID, openbo.OutcomeUnknown, time.Now())
			return
		}

		v.rngMutex.Lock()
		win := v.rng.Float64() < v.config.WinChance
		v.rngMutex.Unlock()

		status := openbo.OutcomeLoss

		v.balanceMutex.Lock()
		if win {
			status = openbo.OutcomeWin
			v.balance += order.Amount * (1.0 + order.Payout)
		}
		v.balanceMutex.Unlock()

		listener(order.WagerID, status, time.Now())
	}()

	return nil
}
