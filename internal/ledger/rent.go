package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/models"
)

const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThresholdYear = 2

	// MaxAmount is the largest balance or supply the store can hold; amounts
	// are persisted in signed 64-bit columns.
	MaxAmount = uint64(math.MaxInt64)
)

// RentExemptMinimum is the deposit charged to the payer when a record of the
// given size is allocated.
func RentExemptMinimum(space int) uint64 {
	return uint64(accountStorageOverhead+space) * lamportsPerByteYear * exemptionThresholdYear
}

// Airdrop credits lamports to a wallet, creating it on first use.
func (d *DB) Airdrop(ctx context.Context, addr address.Pubkey, lamports uint64) (*models.Wallet, error) {
	wallet, err := d.GetWallet(ctx, addr)
	switch {
	case err == nil:
		if lamports > MaxAmount-wallet.Lamports {
			return nil, fmt.Errorf("airdrop to %s: %w", addr, ErrBalanceOverflow)
		}
		wallet.Lamports += lamports
		wallet.UpdatedAt = time.Now()
		_, err = d.Bun.NewUpdate().
			Model(wallet).
			Column("lamports", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("airdrop to %s: %w", addr, err)
		}
		return wallet, nil
	case isNotFound(err):
		if lamports > MaxAmount {
			return nil, fmt.Errorf("airdrop to %s: %w", addr, ErrBalanceOverflow)
		}
		wallet = &models.Wallet{Address: addr.String(), Lamports: lamports, UpdatedAt: time.Now()}
		if _, err := d.Bun.NewInsert().Model(wallet).Exec(ctx); err != nil {
			return nil, fmt.Errorf("airdrop to %s: %w", addr, err)
		}
		return wallet, nil
	default:
		return nil, err
	}
}

// GetWallet returns ErrAccountNotFound for identities that never held lamports.
func (d *DB) GetWallet(ctx context.Context, addr address.Pubkey) (*models.Wallet, error) {
	var wallet models.Wallet
	err := d.Bun.NewSelect().
		Model(&wallet).
		Where("address = ?", addr.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "wallet", addr)
	}
	return &wallet, nil
}

// ChargeRent debits the rent-exempt deposit for a record of the given size.
func (d *DB) ChargeRent(ctx context.Context, payer address.Pubkey, space int) error {
	rent := RentExemptMinimum(space)
	res, err := d.Bun.NewUpdate().
		Model((*models.Wallet)(nil)).
		Set("lamports = lamports - ?", rent).
		Set("updated_at = ?", time.Now()).
		Where("address = ?", payer.String()).
		Where("lamports >= ?", rent).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("charge rent to %s: %w", payer, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("charge rent to %s: %w", payer, err)
	} else if n == 0 {
		return fmt.Errorf("payer %s needs %d lamports: %w", payer, rent, ErrInsufficientFunding)
	}
	return nil
}
