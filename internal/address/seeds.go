package address

import "fmt"

// Seed labels for the event program. These strings are part of the on-ledger
// address format and must not change.
const (
	SeedEvent         = "event"
	SeedEventMint     = "event_mint"
	SeedTreasuryVault = "treasury_vault"
	SeedProfitsVault  = "profits_vault"
)

var (
	EventProgramID           = MustParsePubkey("7pyxedPb29GisxwnJhGNWoeNXUcU9JL1VQFHuHjiHAUS")
	TokenProgramID           = MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustParsePubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// EventAddresses holds every address owned by one event, with the bump that
// produced each of them.
type EventAddresses struct {
	Event         Pubkey
	EventMint     Pubkey
	TreasuryVault Pubkey
	ProfitsVault  Pubkey

	EventBump         uint8
	EventMintBump     uint8
	TreasuryVaultBump uint8
	ProfitsVaultBump  uint8
}

// DeriveEventAddresses computes the event address from its authority, then
// the mint and vault addresses from the event address.
func DeriveEventAddresses(programID, authority Pubkey) (EventAddresses, error) {
	var out EventAddresses
	var err error

	out.Event, out.EventBump, err = FindProgramAddress([][]byte{[]byte(SeedEvent), authority[:]}, programID)
	if err != nil {
		return out, fmt.Errorf("derive event address: %w", err)
	}
	out.EventMint, out.EventMintBump, err = FindProgramAddress([][]byte{[]byte(SeedEventMint), out.Event[:]}, programID)
	if err != nil {
		return out, fmt.Errorf("derive event mint address: %w", err)
	}
	out.TreasuryVault, out.TreasuryVaultBump, err = FindProgramAddress([][]byte{[]byte(SeedTreasuryVault), out.Event[:]}, programID)
	if err != nil {
		return out, fmt.Errorf("derive treasury vault address: %w", err)
	}
	out.ProfitsVault, out.ProfitsVaultBump, err = FindProgramAddress([][]byte{[]byte(SeedProfitsVault), out.Event[:]}, programID)
	if err != nil {
		return out, fmt.Errorf("derive profits vault address: %w", err)
	}
	return out, nil
}

// EventAddress recreates the event address from a stored bump, without searching.
func EventAddress(programID, authority Pubkey, bump uint8) (Pubkey, error) {
	return CreateProgramAddress([][]byte{[]byte(SeedEvent), authority[:], {bump}}, programID)
}

// AssociatedTokenAddress is the canonical custody account of owner for mint.
func AssociatedTokenAddress(owner, mint Pubkey) (Pubkey, error) {
	addr, _, err := FindProgramAddress([][]byte{owner[:], TokenProgramID[:], mint[:]}, AssociatedTokenProgramID)
	if err != nil {
		return Pubkey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}
