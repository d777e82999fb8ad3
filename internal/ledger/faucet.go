package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/models"

	"github.com/uptrace/bun"
)

// Allocation is an initial balance handed out by the faucet.
type Allocation struct {
	Owner  address.Pubkey `json:"owner"`
	Amount uint64         `json:"amount"`
}

// Faucet funds wallets and issues accepted-token mints for development and
// operator use. Every mint it creates has Issuer as mint authority.
type Faucet struct {
	DB     *bun.DB
	Issuer address.Pubkey
	Logger *logger.Logger
}

// NewFaucet uses a fresh random issuer identity.
func NewFaucet(db *bun.DB, log *logger.Logger) (*Faucet, error) {
	issuer, err := randomAddress()
	if err != nil {
		return nil, err
	}
	return &Faucet{DB: db, Issuer: issuer, Logger: log}, nil
}

func (f *Faucet) Airdrop(ctx context.Context, addr address.Pubkey, lamports uint64) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := f.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		wallet, err = (&DB{Bun: tx}).Airdrop(ctx, addr, lamports)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.Logger.LogLedger("AIRDROP", addr.String(), fmt.Sprintf("+%d lamports, now %d", lamports, wallet.Lamports))
	return wallet, nil
}

// CreateMint issues a new token at a random address and mints each
// allocation into the owner's associated account. The issuer's rent is
// airdropped in the same transaction.
func (f *Faucet) CreateMint(ctx context.Context, decimals uint8, allocations []Allocation) (*models.Mint, error) {
	addr, err := randomAddress()
	if err != nil {
		return nil, err
	}

	var mint *models.Mint
	err = f.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		l := &DB{Bun: tx}

		rent := RentExemptMinimum(models.MintAccountSpace) + uint64(len(allocations))*RentExemptMinimum(models.TokenAccountSpace)
		if _, err := l.Airdrop(ctx, f.Issuer, rent); err != nil {
			return err
		}
		if _, err := l.CreateMint(ctx, addr, decimals, f.Issuer, f.Issuer); err != nil {
			return err
		}
		for _, a := range allocations {
			if err := f.issue(ctx, l, addr, a); err != nil {
				return err
			}
		}

		var err error
		mint, err = l.GetMint(ctx, addr)
		return err
	})
	if err != nil {
		return nil, err
	}

	f.Logger.LogLedger("MINT", mint.Address, fmt.Sprintf("created with supply %d across %d holders", mint.Supply, len(allocations)))
	return mint, nil
}

// Issue mints more of a faucet-issued token to owner.
func (f *Faucet) Issue(ctx context.Context, mint address.Pubkey, a Allocation) error {
	err := f.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		l := &DB{Bun: tx}
		if _, err := l.Airdrop(ctx, f.Issuer, RentExemptMinimum(models.TokenAccountSpace)); err != nil {
			return err
		}
		return f.issue(ctx, l, mint, a)
	})
	if err != nil {
		return err
	}
	f.Logger.LogLedger("ISSUE", mint.String(), fmt.Sprintf("%d to %s", a.Amount, a.Owner))
	return nil
}

func (f *Faucet) issue(ctx context.Context, l *DB, mint address.Pubkey, a Allocation) error {
	account, err := l.EnsureAssociatedTokenAccount(ctx, a.Owner, mint, f.Issuer)
	if err != nil {
		return err
	}
	to, err := address.ParsePubkey(account.Address)
	if err != nil {
		return err
	}
	return l.MintTo(ctx, mint, to, a.Amount, f.Issuer)
}

func randomAddress() (address.Pubkey, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return address.Pubkey{}, fmt.Errorf("generate address: %w", err)
	}
	return address.FromPublicKey(pub)
}
