package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/auth"
	"ms-event-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeygenAndToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")

	var out bytes.Buffer
	require.NoError(t, run([]string{"keygen", "--out", path}, &out))
	identity := strings.TrimSpace(out.String())

	out.Reset()
	require.NoError(t, run([]string{"token", "--key", path, "--ttl", "1m"}, &out))

	got, err := auth.NewVerifier(time.Hour).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, identity, got.String())
}

func TestAddress(t *testing.T) {
	authority, _ := testutil.NewIdentity(t)
	want, err := address.DeriveEventAddresses(address.EventProgramID, authority)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run([]string{"address", "--authority", authority.String()}, &out))

	assert.Contains(t, out.String(), fmt.Sprintf("event           %s (bump %d)", want.Event, want.EventBump))
	assert.Contains(t, out.String(), fmt.Sprintf("treasury_vault  %s (bump %d)", want.TreasuryVault, want.TreasuryVaultBump))
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, &out))
	assert.Error(t, run([]string{"bogus"}, &out))
	assert.Error(t, run([]string{"token"}, &out))
	assert.Error(t, run([]string{"address", "--authority", "nope"}, &out))
}
