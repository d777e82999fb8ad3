package address_test

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"ms-event-ledger/internal/address"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress_KnownVectors(t *testing.T) {
	programID := address.MustParsePubkey("BPFLoaderUpgradeab1e11111111111111111111111")
	seedKey := address.MustParsePubkey("SeedPubey1111111111111111111111111111111111")

	cases := []struct {
		name  string
		seeds [][]byte
		want  string
	}{
		{"empty seed", [][]byte{{}, {1}}, "BwqrghZA2htAcqq8dzP1WDAhTXYTYWj7CHxF5j7TDBAe"},
		{"unicode seed", [][]byte{[]byte("☉"), {0}}, "13yWmRpaTR4r5nAktwLqMpRNr28tnVUZw26rTvPSSB19"},
		{"two words", [][]byte{[]byte("Talking"), []byte("Squirrels")}, "2fnQrngrQT4SeLcdToJAD96phoEjNL2man2kfRLCASVk"},
		{"pubkey seed", [][]byte{seedKey[:], {1}}, "976ymqVnfE32QFe6NfGDctSvVa36LWnvYxhU6G2232YL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := address.CreateProgramAddress(tc.seeds, programID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	programID := address.EventProgramID

	_, err := address.CreateProgramAddress([][]byte{make([]byte, address.MaxSeedLength+1)}, programID)
	assert.ErrorIs(t, err, address.ErrMaxSeedLength)

	seeds := make([][]byte, address.MaxSeeds+1)
	_, err = address.CreateProgramAddress(seeds, programID)
	assert.ErrorIs(t, err, address.ErrMaxSeedLength)
}

func TestDeriveEventAddresses(t *testing.T) {
	authority := address.MustParsePubkey("SeedPubey1111111111111111111111111111111111")

	addrs, err := address.DeriveEventAddresses(address.EventProgramID, authority)
	require.NoError(t, err)

	assert.Equal(t, "Carhw96gyHibRGutfWZXnmrA32HB82iJibXsmfjjcNsC", addrs.Event.String())
	assert.Equal(t, uint8(255), addrs.EventBump)
	assert.Equal(t, "DT5AiyMVLqXgEYCmnZXC634f3d5nCHffuMDvc3EZZ3LN", addrs.EventMint.String())
	assert.Equal(t, uint8(255), addrs.EventMintBump)
	assert.Equal(t, "3fLeSyz4qoaa8T53Lp61Xyh4x2dTRenR1xHyyXsTNn22", addrs.TreasuryVault.String())
	assert.Equal(t, uint8(253), addrs.TreasuryVaultBump)
	assert.Equal(t, "8aNPVqngGHoq9JjviTEDTfxq13vkvbve7D5ATr1D2YuH", addrs.ProfitsVault.String())
	assert.Equal(t, uint8(254), addrs.ProfitsVaultBump)

	again, err := address.EventAddress(address.EventProgramID, authority, addrs.EventBump)
	require.NoError(t, err)
	assert.Equal(t, addrs.Event, again)
}

func TestDeriveEventAddresses_DistinctPerAuthority(t *testing.T) {
	a, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	b, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	pa, err := address.FromPublicKey(a)
	require.NoError(t, err)
	pb, err := address.FromPublicKey(b)
	require.NoError(t, err)

	addrsA, err := address.DeriveEventAddresses(address.EventProgramID, pa)
	require.NoError(t, err)
	addrsB, err := address.DeriveEventAddresses(address.EventProgramID, pb)
	require.NoError(t, err)

	assert.NotEqual(t, addrsA.Event, addrsB.Event)
	assert.NotEqual(t, addrsA.TreasuryVault, addrsB.TreasuryVault)
	assert.NotEqual(t, addrsA.TreasuryVault, addrsA.ProfitsVault)
	assert.False(t, address.IsOnCurve(addrsA.Event[:]))
	assert.True(t, address.IsOnCurve(pa[:]), "a real ed25519 key is on the curve")
}

func TestAssociatedTokenAddress(t *testing.T) {
	owner := address.MustParsePubkey("SeedPubey1111111111111111111111111111111111")
	mint := address.MustParsePubkey("So11111111111111111111111111111111111111112")

	ata, err := address.AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, "DBZnUH5nkpYG3RmpXZg5UXjisqMFGQNtUghZroPWCWJM", ata.String())
}

func TestParsePubkey(t *testing.T) {
	_, err := address.ParsePubkey("not-base58-0OIl")
	assert.ErrorIs(t, err, address.ErrInvalidPubkey)

	_, err = address.ParsePubkey("3mJr7AoUXx2Wqd")
	assert.ErrorIs(t, err, address.ErrInvalidPubkey)

	pk := address.MustParsePubkey("So11111111111111111111111111111111111111112")
	raw, err := json.Marshal(struct {
		Key address.Pubkey `json:"key"`
	}{pk})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"So11111111111111111111111111111111111111112"}`, string(raw))

	var decoded struct {
		Key address.Pubkey `json:"key"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, pk, decoded.Key)
	assert.False(t, decoded.Key.IsZero())
}
