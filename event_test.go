package openbo_test

import (
	"testing"

	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/stretchr/testify/require"
)

func TestNewBetOpenedEvent_IsPoolWide(t *testing.T) {
	order := &openbo.VenueOrder{
		WagerID:   "wager-1",
		Symbol:    "EURUSD",
		Direction: openbo.Up,
		Amount:    100,
		Payout:    0.85,
	}

	event := openbo.NewBetOpenedEvent("venue", order)

	require.Empty(t, event.HolderName)
	require.Contains(t, event.Payload, "wager-1")
	require.Contains(t, event.Payload, "venue")
}

func TestNewBetSettledEvent_CarriesHolder(t *testing.T) {
	account := eligibleAccount(1000)

	event := openbo.NewBetSettledEvent(account, openbo.OutcomeWin, 25, 25)

	require.Equal(t, "holder", event.HolderName)
	require.Contains(t, event.Payload, "holder")
}
