package events

import (
	"testing"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventScope(t *testing.T) {
	authority := address.MustParsePubkey("SeedPubey1111111111111111111111111111111111")
	addrs, err := address.DeriveEventAddresses(address.EventProgramID, authority)
	require.NoError(t, err)

	s := &Service{ProgramID: address.EventProgramID}
	ev := &models.Event{Authority: authority.String(), EventBump: addrs.EventBump}

	scope, err := s.eventScope(ev)
	require.NoError(t, err)
	assert.Equal(t, addrs.Event, scope)

	// Another program derives a different scope for the same authority.
	s.ProgramID = address.TokenProgramID
	other, err := s.eventScope(ev)
	if err == nil {
		assert.NotEqual(t, addrs.Event, other)
	}
}
