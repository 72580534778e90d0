package openbo

import (
	"math"
	"time"
)

// AccountRepository is the persistence port for ledger accounts.
type AccountRepository interface {
	CreateAccount(account *Account) error

	UpdateAccount(account *Account) error

	DeleteAccount(accountID uint64) error

	Accounts() ([]*Account, error)
}

// PendingStake is the exposure reserved for a single wager between
// allocation and settlement. Profit is the expected payout on a win,
// computed at allocation time.
type PendingStake struct {
	Amount float64
	Profit float64
}

// Account is a single sub-account of the bankroll with its own balance,
// risk parameters and pending exposure. Accounts are owned by the ledger;
// every account leaving the ledger boundary is a deep copy.
type Account struct {
	ID         uint64
	HolderName string
	Note       string

	StartBalance float64
	Balance      float64

	// Zero disables the corresponding bound.
	AbsoluteStopLoss   float64
	AbsoluteTakeProfit float64

	KellyAttenuationMultiplier float64
	KellyAttenuationLimiter    float64
	PayoutLimiter              float64
	WinrateLimiter             float64

	Wins   uint64
	Losses uint64

	Strategies map[string]bool

	Demo    bool
	Enabled bool

	StartTimestamp time.Time
	Timestamp      time.Time

	PendingStakes map[string]PendingStake

	// Balance snapshots keyed by UTC day start, written on every
	// allocation and settlement.
	DailyBalance map[int64]float64
}

func NewAccount() *Account {
	return &Account{
		KellyAttenuationMultiplier: 1.0,
		KellyAttenuationLimiter:    0.4,
		PayoutLimiter:              1.0,
		WinrateLimiter:             1.0,
		Demo:                       true,
		Strategies:                 make(map[string]bool),
		PendingStakes:              make(map[string]PendingStake),
		DailyBalance:               make(map[int64]float64),
	}
}

// Size computes the account's Kelly-criterion stake for a single wager.
// A false result is the normal "no stake" outcome, not an error; it covers
// disabled accounts, mode mismatch, tripped balance bounds, disallowed
// strategies and a non-positive edge after limiter clamping.
func (a *Account) Size(
	strategy string,
	demo bool,
	payout float64,
	winrate float64,
	attenuation float64,
) (float64, bool) {
	if !a.Enabled || a.Demo != demo {
		return 0, false
	}

	if a.AbsoluteStopLoss != 0 && a.Balance < a.AbsoluteStopLoss {
		return 0, false
	}

	if a.AbsoluteTakeProfit != 0 && a.Balance > a.AbsoluteTakeProfit {
		return 0, false
	}

	if !a.Strategies[strategy] {
		return 0, false
	}

	// Limiters clamp the caller's estimates before the Kelly formula so
	// an overconfident signal cannot inflate the stake.
	payout = math.Min(payout, a.PayoutLimiter)
	winrate = math.Min(winrate, a.WinrateLimiter)

	if payout <= 0 || winrate <= 1.0/(1.0+payout) {
		return 0, false
	}

	attenuation *= a.KellyAttenuationMultiplier
	if attenuation < 0 {
		attenuation = 0
	}
	if attenuation > a.KellyAttenuationLimiter {
		attenuation = a.KellyAttenuationLimiter
	}

	risk := attenuation * (((1.0+payout)*winrate - 1.0) / payout)

	return a.Balance * risk, true
}

// Winrate returns the historical win ratio of settled wagers.
func (a *Account) Winrate() float64 {
	total := a.Wins + a.Losses
	if total == 0 {
		return 0
	}

	return float64(a.Wins) / float64(total)
}

// PendingAmount returns the total stake currently reserved for
// unsettled wagers.
func (a *Account) PendingAmount() float64 {
	sum := 0.0
	for _, stake := range a.PendingStakes {
		sum += stake.Amount
	}

	return sum
}

func (a *Account) snapshotDailyBalance(timestamp time.Time) {
	if a.DailyBalance == nil {
		a.DailyBalance = make(map[int64]float64)
	}

	a.DailyBalance[DayBucket(timestamp)] = a.Balance
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	clone := *a

	clone.Strategies = make(map[string]bool, len(a.Strategies))
	for name, allowed := range a.Strategies {
		clone.Strategies[name] = allowed
	}

	clone.PendingStakes = make(map[string]PendingStake, len(a.PendingStakes))
	for wagerID, stake := range a.PendingStakes {
		clone.PendingStakes[wagerID] = stake
	}

	clone.DailyBalance = make(map[int64]float64, len(a.DailyBalance))
	for day, balance := range a.DailyBalance {
		clone.DailyBalance[day] = balance
	}

	return &clone
}
