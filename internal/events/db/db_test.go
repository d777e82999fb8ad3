package db

import (
	"context"
	"testing"
	"time"

	"ms-event-ledger/internal/models"
	"ms-event-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(address, authority string) *models.Event {
	return &models.Event{
		Address:       address,
		Name:          "Conf",
		TicketPrice:   100,
		IsActive:      true,
		Authority:     authority,
		AcceptedMint:  "mint",
		EventMint:     address + "-mint",
		TreasuryVault: address + "-treasury",
		ProfitsVault:  address + "-profits",
		EventBump:     255,
	}
}

func TestInsertAndGetEvent(t *testing.T) {
	ctx := context.Background()
	d := &DB{Bun: testutil.NewDB(t)}

	require.NoError(t, d.InsertEvent(ctx, testEvent("event-1", "authority-1")))

	got, err := d.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, "Conf", got.Name)
	assert.Equal(t, uint64(100), got.TicketPrice)
	assert.True(t, got.IsActive)
	assert.Equal(t, uint8(255), got.EventBump)

	byAuthority, err := d.GetEventByAuthority(ctx, "authority-1")
	require.NoError(t, err)
	assert.Equal(t, "event-1", byAuthority.Address)
}

func TestInsertEvent_DuplicateAuthority(t *testing.T) {
	ctx := context.Background()
	d := &DB{Bun: testutil.NewDB(t)}

	require.NoError(t, d.InsertEvent(ctx, testEvent("event-1", "authority-1")))
	assert.Error(t, d.InsertEvent(ctx, testEvent("event-2", "authority-1")))
}

func TestGetEvent_NotFound(t *testing.T) {
	ctx := context.Background()
	d := &DB{Bun: testutil.NewDB(t)}

	_, err := d.GetEvent(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.GetEventByAuthority(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	d := &DB{Bun: testutil.NewDB(t)}
	ev := testEvent("event-1", "authority-1")
	require.NoError(t, d.InsertEvent(ctx, ev))

	ev.IsActive = false
	ev.Sponsors = 50
	ev.Name = "ignored"
	require.NoError(t, d.UpdateEvent(ctx, ev))

	got, err := d.GetEvent(ctx, "event-1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, uint64(50), got.Sponsors)
	assert.Equal(t, "Conf", got.Name, "name is immutable")

	missing := testEvent("event-2", "authority-2")
	assert.ErrorIs(t, d.UpdateEvent(ctx, missing), ErrNotFound)
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	d := &DB{Bun: testutil.NewDB(t)}

	older := testEvent("event-1", "authority-1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	older.IsActive = false
	require.NoError(t, d.InsertEvent(ctx, older))
	require.NoError(t, d.InsertEvent(ctx, testEvent("event-2", "authority-2")))

	all, err := d.ListEvents(ctx, false, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "event-2", all[0].Address)

	active, err := d.ListEvents(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "event-2", active[0].Address)
}
