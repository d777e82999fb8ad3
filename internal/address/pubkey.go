package address

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const PubkeySize = 32

var ErrInvalidPubkey = errors.New("invalid public key")

// Pubkey is a 32-byte ledger identity, rendered in base58.
type Pubkey [PubkeySize]byte

// ParsePubkey decodes a base58 address.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w %q: %v", ErrInvalidPubkey, s, err)
	}
	if len(raw) != PubkeySize {
		return pk, fmt.Errorf("%w %q: want %d bytes, got %d", ErrInvalidPubkey, s, PubkeySize, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustParsePubkey is ParsePubkey for constants known at compile time.
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// FromPublicKey converts an ed25519 public key into an identity.
func FromPublicKey(key ed25519.PublicKey) (Pubkey, error) {
	var pk Pubkey
	if len(key) != ed25519.PublicKeySize {
		return pk, fmt.Errorf("%w: ed25519 key has %d bytes", ErrInvalidPubkey, len(key))
	}
	copy(pk[:], key)
	return pk, nil
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Bytes() []byte {
	return p[:]
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// PublicKey returns the identity as an ed25519 verification key.
func (p Pubkey) PublicKey() ed25519.PublicKey {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, p[:])
	return key
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
