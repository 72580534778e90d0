package openbo

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPrecision is the decimal stake granularity used when a bet
// request does not set one. Most venues settle at cent granularity.
const DefaultPrecision = 2

// Truncate cuts the value to the given number of decimal places without
// rounding, the way venues truncate stakes.
func Truncate(value float64, precision int) float64 {
	return decimal.NewFromFloat(value).Truncate(int32(precision)).InexactFloat64()
}

// DayBucket maps a timestamp to the start of its UTC day.
func DayBucket(timestamp time.Time) int64 {
	year, month, day := timestamp.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix()
}

// JoinStrategies encodes an allowed-strategy set as the comma-separated
// list used by the account storage row.
func JoinStrategies(strategies map[string]bool) string {
	names := make([]string, 0, len(strategies))
	for name, allowed := range strategies {
		if allowed {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return strings.Join(names, ",")
}

// ParseStrategies decodes a comma-separated strategy list, ignoring
// blank entries.
func ParseStrategies(value string) map[string]bool {
	strategies := make(map[string]bool)

	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if len(name) > 0 {
			strategies[name] = true
		}
	}

	return strategies
}
