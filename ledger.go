package openbo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

const defaultFlushInterval = 250 * time.Millisecond

// BetRequest describes a single allocation spread across the account pool.
// Amount is authoritative: the pool is debited by exactly that value.
type BetRequest struct {
	WagerID     string
	Amount      float64
	Strategy    string
	Demo        bool
	Payout      float64
	Winrate     float64
	Attenuation float64
	Timestamp   time.Time
	Precision   int
}

// SettlementCallback is invoked once per settled account with a copy of
// the account and the stake and profit amounts involved. It runs inside
// the settlement critical section and must not call back into the ledger.
type SettlementCallback func(account *Account, amount, profit float64)

// Ledger is the bankroll manager. It is the sole owner of the account map:
// allocation, settlement and balance reads all run under one exclusive
// lock, and storage writes happen on a background flush task that never
// holds that lock during I/O.
type Ledger struct {
	logger     Logger
	repository AccountRepository

	mutex    sync.Mutex
	accounts map[uint64]*Account

	// Serializes structural account edits against flush writes so
	// storage sees them in a consistent order. Never acquired while
	// holding mutex.
	editMutex sync.Mutex

	flushMutex    sync.Mutex
	dirty         bool
	closed        bool
	flushDone     chan struct{}
	flushInterval time.Duration

	stopChan chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
}

// RunLedger loads all persisted accounts and starts the background flush
// task. The ledger flushes its final state when the context is done or
// when Close is called, whichever comes first.
func RunLedger(
	ctx context.Context,
	repository AccountRepository,
	logger Logger,
) (*Ledger, error) {
	accounts, err := repository.Accounts()
	if err != nil {
		return nil, fmt.Errorf("could not load accounts: [%v]", err)
	}

	ledger := &Ledger{
		logger:        logger.WithField("component", "ledger"),
		repository:    repository,
		accounts:      make(map[uint64]*Account, len(accounts)),
		flushInterval: defaultFlushInterval,
		stopChan:      make(chan struct{}),
		loopDone:      make(chan struct{}),
	}

	for _, account := range accounts {
		ledger.accounts[account.ID] = account
	}

	go ledger.flushLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = ledger.Close()
		case <-ledger.stopChan:
		}
	}()

	return ledger, nil
}

// Close stops the persistence pipeline after flushing the current state.
func (l *Ledger) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})

	<-l.loopDone

	l.flushMutex.Lock()
	l.dirty = true
	l.flushMutex.Unlock()

	l.flush()

	// The flush loop is gone; release anyone parked on Push(wait) and
	// make later pushes no-ops.
	l.flushMutex.Lock()
	l.closed = true
	if l.flushDone != nil {
		close(l.flushDone)
		l.flushDone = nil
	}
	l.flushMutex.Unlock()

	return nil
}

func (l *Ledger) flushLoop() {
	defer close(l.loopDone)

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.flush()
		case <-l.stopChan:
			return
		}
	}
}

// flush writes a point-in-time copy of all enabled accounts to storage.
// The account lock is released before any I/O happens. A failed write
// re-marks the state dirty so the next tick retries from the then-current
// state, but waiters are always released.
func (l *Ledger) flush() {
	l.flushMutex.Lock()
	if !l.dirty {
		l.flushMutex.Unlock()
		return
	}
	l.dirty = false
	done := l.flushDone
	l.flushDone = nil
	l.flushMutex.Unlock()

	l.mutex.Lock()
	snapshot := make([]*Account, 0, len(l.accounts))
	for _, account := range l.accounts {
		if account.Enabled {
			snapshot = append(snapshot, account.Clone())
		}
	}
	l.mutex.Unlock()

	failed := false

	l.editMutex.Lock()
	for _, account := range snapshot {
		if err := l.repository.UpdateAccount(account); err != nil {
			l.logger.Errorf(
				"could not persist account [%v]: [%v]",
				account.ID,
				err,
			)
			failed = true
		}
	}
	l.editMutex.Unlock()

	if failed {
		l.flushMutex.Lock()
		l.dirty = true
		l.flushMutex.Unlock()
	}

	if done != nil {
		close(done)
	}
}

// Push marks the in-memory state dirty for the background flush task.
// With wait set, it blocks until a subsequent flush pass completes.
// Pushing to a closed ledger returns immediately.
func (l *Ledger) Push(wait bool) {
	l.flushMutex.Lock()
	if l.closed {
		l.flushMutex.Unlock()
		return
	}
	l.dirty = true
	if l.flushDone == nil {
		l.flushDone = make(chan struct{})
	}
	done := l.flushDone
	l.flushMutex.Unlock()

	if wait {
		<-done
	}
}

// CalcAmount previews the pool-wide stake for the given inputs without
// reserving anything. A false result means no account is willing to bet.
func (l *Ledger) CalcAmount(
	strategy string,
	demo bool,
	payout float64,
	winrate float64,
	attenuation float64,
) (float64, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	sumAmount := 0.0
	for _, account := range l.accounts {
		amount, ok := account.Size(strategy, demo, payout, winrate, attenuation)
		if ok && amount > 0 {
			sumAmount += amount
		}
	}

	if sumAmount <= 0 {
		return 0, false
	}

	return sumAmount, true
}

// MakeBet sizes and reserves the requested amount across all eligible
// accounts, debiting each one proportionally to its own Kelly stake.
// The truncation error of quantizing the internally computed total is
// redistributed over the same proportions so the books stay balanced
// against what the venue actually accepts. A false result means either
// no account is willing to bet or the wager id is already pending.
func (l *Ledger) MakeBet(request *BetRequest) bool {
	precision := request.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, account := range l.accounts {
		if _, pending := account.PendingStakes[request.WagerID]; pending {
			l.logger.Warningf(
				"wager [%v] is already pending; rejecting duplicate allocation",
				request.WagerID,
			)
			return false
		}
	}

	shares := make(map[uint64]float64)
	sumAmount := 0.0
	for accountID, account := range l.accounts {
		amount, ok := account.Size(
			request.Strategy,
			request.Demo,
			request.Payout,
			request.Winrate,
			request.Attenuation,
		)
		if !ok || amount <= 0 {
			continue
		}

		shares[accountID] = amount
		sumAmount += amount
	}

	if sumAmount <= 0 {
		return false
	}

	sumProfit := sumAmount * request.Payout
	errorAmount := math.Abs(sumAmount - Truncate(sumAmount, precision))
	errorProfit := math.Abs(sumProfit - Truncate(sumProfit, precision))

	for accountID, share := range shares {
		account := l.accounts[accountID]
		proportion := share / sumAmount

		stake := proportion*request.Amount - proportion*errorAmount
		if stake <= 0 {
			continue
		}

		profit := stake*request.Payout - proportion*errorProfit

		account.Balance -= stake
		account.PendingStakes[request.WagerID] = PendingStake{
			Amount: stake,
			Profit: profit,
		}
		account.Timestamp = request.Timestamp
		account.snapshotDailyBalance(request.Timestamp)
	}

	return true
}

// SetWin settles a won wager: every account holding a pending stake gets
// the stake and its expected profit credited back. Settlement is
// idempotent per wager id; a second call is a no-op returning false.
func (l *Ledger) SetWin(
	wagerID string,
	timestamp time.Time,
	callback SettlementCallback,
) bool {
	return l.settle(
		wagerID,
		timestamp,
		callback,
		func(account *Account, stake PendingStake) {
			account.Balance += stake.Amount + stake.Profit
			account.Wins++
		},
	)
}

// SetLoss settles a lost wager: the reserved stake is forfeited.
func (l *Ledger) SetLoss(
	wagerID string,
	timestamp time.Time,
	callback SettlementCallback,
) bool {
	return l.settle(
		wagerID,
		timestamp,
		callback,
		func(account *Account, stake PendingStake) {
			account.Losses++
		},
	)
}

// SetStandoff settles a tied or never-opened wager: the stake is returned
// without profit. Ties are scored on the loss counter.
func (l *Ledger) SetStandoff(
	wagerID string,
	timestamp time.Time,
	callback SettlementCallback,
) bool {
	return l.settle(
		wagerID,
		timestamp,
		callback,
		func(account *Account, stake PendingStake) {
			account.Balance += stake.Amount
			account.Losses++
		},
	)
}

func (l *Ledger) settle(
	wagerID string,
	timestamp time.Time,
	callback SettlementCallback,
	mutate func(account *Account, stake PendingStake),
) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	settled := false

	for _, account := range l.accounts {
		stake, exists := account.PendingStakes[wagerID]
		if !exists {
			continue
		}

		// The pending entry is removed even when the settlement
		// mutation is skipped, so a wager never settles twice.
		delete(account.PendingStakes, wagerID)

		if !account.Enabled || stake.Amount <= 0 || stake.Profit <= 0 {
			continue
		}

		mutate(account, stake)

		account.Timestamp = timestamp
		account.snapshotDailyBalance(timestamp)

		if callback != nil {
			callback(account.Clone(), stake.Amount, stake.Profit)
		}

		settled = true
	}

	return settled
}

// Balance returns the summed balance of enabled accounts in the given mode.
func (l *Ledger) Balance(demo bool) float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	sum := 0.0
	for _, account := range l.accounts {
		if account.Enabled && account.Demo == demo {
			sum += account.Balance
		}
	}

	return sum
}

// CheckBalance reports whether the pooled account balances fit within the
// given deposit balance.
func (l *Ledger) CheckBalance(totalBalance float64, demo bool) bool {
	return l.Balance(demo) <= totalBalance
}

// GainPerDay reports each enabled account's relative balance gain for the
// day of the given date, computed against the latest snapshot before that
// day, or the start balance if no such snapshot exists.
func (l *Ledger) GainPerDay(
	date time.Time,
	demo bool,
	callback func(accountID uint64, holderName string, gain float64),
) {
	dayStart := DayBucket(date)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, account := range l.accounts {
		if !account.Enabled || account.Demo != demo {
			continue
		}

		dayBalance, dayFound := account.DailyBalance[dayStart]

		reference := account.StartBalance
		referenceBucket := int64(-1)
		for bucket, balance := range account.DailyBalance {
			if bucket < dayStart && bucket > referenceBucket {
				reference = balance
				referenceBucket = bucket
			}
		}

		gain := 0.0
		if dayFound && reference > 0 {
			gain = (dayBalance - reference) / reference
		}

		callback(account.ID, account.HolderName, gain)
	}
}

// Accounts returns a point-in-time copy of all accounts, ordered by id.
func (l *Ledger) Accounts() []*Account {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	accounts := make([]*Account, 0, len(l.accounts))
	for _, account := range l.accounts {
		accounts = append(accounts, account.Clone())
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})

	return accounts
}

// Account returns a copy of a single account.
func (l *Ledger) Account(accountID uint64) (*Account, bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	account, exists := l.accounts[accountID]
	if !exists {
		return nil, false
	}

	return account.Clone(), true
}

// AddAccount assigns the next free id, persists the new account and adds
// it to the pool. The passed account's ID field is overwritten.
func (l *Ledger) AddAccount(account *Account) error {
	l.editMutex.Lock()
	defer l.editMutex.Unlock()

	l.mutex.Lock()
	nextID := uint64(0)
	for accountID := range l.accounts {
		if accountID >= nextID {
			nextID = accountID + 1
		}
	}
	account.ID = nextID
	if account.StartTimestamp.IsZero() {
		account.StartTimestamp = time.Now()
	}
	if account.Timestamp.IsZero() {
		account.Timestamp = account.StartTimestamp
	}
	owned := account.Clone()
	l.mutex.Unlock()

	if err := l.repository.CreateAccount(owned.Clone()); err != nil {
		return fmt.Errorf("could not persist account [%v]: [%v]", owned.ID, err)
	}

	l.mutex.Lock()
	l.accounts[owned.ID] = owned
	l.mutex.Unlock()

	return nil
}

// UpdateAccount replaces an account's parameters, keeping its live
// pending exposure untouched so in-flight wagers still settle.
func (l *Ledger) UpdateAccount(account *Account) error {
	l.editMutex.Lock()
	defer l.editMutex.Unlock()

	l.mutex.Lock()
	existing, exists := l.accounts[account.ID]
	if !exists {
		l.mutex.Unlock()
		return fmt.Errorf("unknown account: [%v]", account.ID)
	}

	owned := account.Clone()
	owned.PendingStakes = existing.PendingStakes
	l.accounts[account.ID] = owned
	l.mutex.Unlock()

	if err := l.repository.UpdateAccount(owned.Clone()); err != nil {
		return fmt.Errorf("could not persist account [%v]: [%v]", account.ID, err)
	}

	return nil
}

// DeleteAccount removes an account from the pool and from storage.
func (l *Ledger) DeleteAccount(accountID uint64) error {
	l.editMutex.Lock()
	defer l.editMutex.Unlock()

	l.mutex.Lock()
	if _, exists := l.accounts[accountID]; !exists {
		l.mutex.Unlock()
		return fmt.Errorf("unknown account: [%v]", accountID)
	}
	delete(l.accounts, accountID)
	l.mutex.Unlock()

	if err := l.repository.DeleteAccount(accountID); err != nil {
		return fmt.Errorf("could not delete account [%v]: [%v]", accountID, err)
	}

	return nil
}
