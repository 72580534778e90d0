package openbo_test

import (
	"testing"
	"time"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	require.Equal(t, 51.76, openbo.Truncate(51.7647, 2))
	require.Equal(t, 99.99, openbo.Truncate(99.999, 2))
	require.Equal(t, 100.0, openbo.Truncate(100.0, 2))
	require.Equal(t, 3.141, openbo.Truncate(3.14159, 3))
}

func TestDayBucket(t *testing.T) {
	morning := time.Date(2020, 6, 15, 8, 30, 0, 0, time.UTC)
	evening := time.Date(2020, 6, 15, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2020, 6, 16, 0, 0, 1, 0, time.UTC)

	require.Equal(t, openbo.DayBucket(morning), openbo.DayBucket(evening))
	require.NotEqual(t, openbo.DayBucket(morning), openbo.DayBucket(nextDay))
}

func TestParseStrategies(t *testing.T) {
	strategies := openbo.ParseStrategies(" trend, ,rsi,")

	require.Equal(t, map[string]bool{"trend": true, "rsi": true}, strategies)
}

func TestJoinStrategies(t *testing.T) {
	joined := openbo.JoinStrategies(map[string]bool{
		"trend": true,
		"rsi":   true,
		"off":   false,
	})

	require.Equal(t, "rsi,trend", joined)
}
