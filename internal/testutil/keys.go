package testutil

import (
	"crypto/ed25519"
	"testing"

	"ms-event-ledger/internal/address"
)

// NewIdentity generates a fresh ed25519 keypair.
func NewIdentity(t *testing.T) (address.Pubkey, ed25519.PrivateKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	pk, err := address.FromPublicKey(pub)
	if err != nil {
		t.Fatalf("Failed to convert key: %v", err)
	}
	return pk, priv
}
