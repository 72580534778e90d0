package openbo

import "fmt"

// Signal is a strategy's request to trade one option on the next closing
// price. Winrate and Attenuation are the strategy's own estimates; the
// ledger clamps them per account before sizing.
type Signal struct {
	Symbol      string
	Direction   Direction
	Strategy    string
	Winrate     float64
	Attenuation float64
}

func (s *Signal) String() string {
	return fmt.Sprintf(
		"%v (%v), strategy: %v, winrate: %v, attenuation: %v",
		s.Symbol,
		s.Direction,
		s.Strategy,
		s.Winrate,
		s.Attenuation,
	)
}

// SignalGenerator produces trade signals for the trading loop. Poll
// returns false when no signal is pending.
type SignalGenerator interface {
	Poll() (*Signal, bool)
}
