package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/models"

	"github.com/uptrace/bun"
)

// DB is the custodial token store. Bun may be a *bun.DB or a bun.Tx; every
// primitive runs inside whatever transaction the caller opened.
type DB struct {
	Bun bun.IDB
}

// ---------------- MINTS ----------------

// CreateMint allocates a token type whose supply only authority can grow.
func (d *DB) CreateMint(ctx context.Context, addr address.Pubkey, decimals uint8, authority, payer address.Pubkey) (*models.Mint, error) {
	if _, err := d.GetMint(ctx, addr); err == nil {
		return nil, fmt.Errorf("mint %s: %w", addr, ErrAccountExists)
	} else if !isNotFound(err) {
		return nil, err
	}

	if err := d.ChargeRent(ctx, payer, models.MintAccountSpace); err != nil {
		return nil, err
	}

	mint := &models.Mint{
		Address:       addr.String(),
		Decimals:      decimals,
		MintAuthority: authority.String(),
		CreatedAt:     time.Now(),
	}
	if _, err := d.Bun.NewInsert().Model(mint).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert mint %s: %w", addr, err)
	}
	return mint, nil
}

func (d *DB) GetMint(ctx context.Context, addr address.Pubkey) (*models.Mint, error) {
	var mint models.Mint
	err := d.Bun.NewSelect().
		Model(&mint).
		Where("address = ?", addr.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "mint", addr)
	}
	return &mint, nil
}

// ---------------- TOKEN ACCOUNTS ----------------

// CreateTokenAccount allocates custody of mint for owner at addr.
func (d *DB) CreateTokenAccount(ctx context.Context, addr, mint, owner, payer address.Pubkey) (*models.TokenAccount, error) {
	if _, err := d.GetMint(ctx, mint); err != nil {
		return nil, err
	}
	if _, err := d.GetTokenAccount(ctx, addr); err == nil {
		return nil, fmt.Errorf("token account %s: %w", addr, ErrAccountExists)
	} else if !isNotFound(err) {
		return nil, err
	}

	if err := d.ChargeRent(ctx, payer, models.TokenAccountSpace); err != nil {
		return nil, err
	}

	account := &models.TokenAccount{
		Address:   addr.String(),
		Mint:      mint.String(),
		Owner:     owner.String(),
		CreatedAt: time.Now(),
	}
	if _, err := d.Bun.NewInsert().Model(account).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert token account %s: %w", addr, err)
	}
	return account, nil
}

// CreateAssociatedTokenAccount allocates the canonical custody of owner for mint.
func (d *DB) CreateAssociatedTokenAccount(ctx context.Context, owner, mint, payer address.Pubkey) (*models.TokenAccount, error) {
	addr, err := address.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	return d.CreateTokenAccount(ctx, addr, mint, owner, payer)
}

// EnsureAssociatedTokenAccount returns the canonical custody of owner for
// mint, creating it at payer's expense when absent.
func (d *DB) EnsureAssociatedTokenAccount(ctx context.Context, owner, mint, payer address.Pubkey) (*models.TokenAccount, error) {
	addr, err := address.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}

	account, err := d.GetTokenAccount(ctx, addr)
	if err == nil {
		return account, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return d.CreateTokenAccount(ctx, addr, mint, owner, payer)
}

func (d *DB) GetTokenAccount(ctx context.Context, addr address.Pubkey) (*models.TokenAccount, error) {
	var account models.TokenAccount
	err := d.Bun.NewSelect().
		Model(&account).
		Where("address = ?", addr.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "token account", addr)
	}
	return &account, nil
}

// Balance of a token account; a missing account holds nothing.
func (d *DB) Balance(ctx context.Context, addr address.Pubkey) (uint64, error) {
	account, err := d.GetTokenAccount(ctx, addr)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Amount, nil
}

// ---------------- TRANSFERS ----------------

// Transfer moves amount between two accounts of the same mint. authority must
// own the source account.
func (d *DB) Transfer(ctx context.Context, from, to address.Pubkey, amount uint64, authority address.Pubkey) error {
	src, err := d.GetTokenAccount(ctx, from)
	if err != nil {
		return err
	}
	dst, err := d.GetTokenAccount(ctx, to)
	if err != nil {
		return err
	}

	if src.Owner != authority.String() {
		return fmt.Errorf("transfer from %s signed by %s: %w", from, authority, ErrOwnerMismatch)
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("transfer %s -> %s: %w", from, to, ErrMintMismatch)
	}
	if src.Amount < amount {
		return fmt.Errorf("transfer %d from %s holding %d: %w", amount, from, src.Amount, ErrInsufficientBalance)
	}
	if from == to || amount == 0 {
		return nil
	}

	if err := d.debit(ctx, from, amount); err != nil {
		return err
	}
	return d.credit(ctx, to, amount)
}

// MintTo creates amount new units of mint in the to account. authority must be
// the mint's configured authority.
func (d *DB) MintTo(ctx context.Context, mint, to address.Pubkey, amount uint64, authority address.Pubkey) error {
	m, err := d.GetMint(ctx, mint)
	if err != nil {
		return err
	}
	dst, err := d.GetTokenAccount(ctx, to)
	if err != nil {
		return err
	}

	if m.MintAuthority != authority.String() {
		return fmt.Errorf("mint %s signed by %s: %w", mint, authority, ErrMintAuthorityMismatch)
	}
	if dst.Mint != m.Address {
		return fmt.Errorf("mint %s into %s: %w", mint, to, ErrMintMismatch)
	}
	if amount > MaxAmount-m.Supply {
		return fmt.Errorf("mint %d of %s: %w", amount, mint, ErrSupplyOverflow)
	}
	if amount == 0 {
		return nil
	}

	_, err = d.Bun.NewUpdate().
		Model((*models.Mint)(nil)).
		Set("supply = supply + ?", amount).
		Where("address = ?", m.Address).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update supply of %s: %w", mint, err)
	}
	return d.credit(ctx, to, amount)
}

func (d *DB) debit(ctx context.Context, addr address.Pubkey, amount uint64) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.TokenAccount)(nil)).
		Set("amount = amount - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("address = ?", addr.String()).
		Where("amount >= ?", amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("debit %s: %w", addr, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit %s: %w", addr, err)
	}
	if n == 0 {
		return fmt.Errorf("debit %d from %s: %w", amount, addr, ErrInsufficientBalance)
	}
	return nil
}

// credit cannot overflow: the sum of all balances of a mint equals its
// supply, which MintTo caps at MaxAmount.
func (d *DB) credit(ctx context.Context, addr address.Pubkey, amount uint64) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.TokenAccount)(nil)).
		Set("amount = amount + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("address = ?", addr.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("credit %s: %w", addr, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func notFound(err error, kind string, addr address.Pubkey) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, addr, ErrAccountNotFound)
	}
	return fmt.Errorf("load %s %s: %w", kind, addr, err)
}
