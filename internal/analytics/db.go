package analytics

import (
	"context"

	"ms-event-ledger/internal/models"

	"github.com/uptrace/bun"
)

// DB runs the read-only aggregate queries behind the analytics endpoints.
type DB struct {
	bun bun.IDB
}

func NewDB(db bun.IDB) *DB {
	return &DB{bun: db}
}

func (db *DB) CountEvents(ctx context.Context, activeOnly bool) (int, error) {
	q := db.bun.NewSelect().Model((*models.Event)(nil))
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	return q.Count(ctx)
}

// TotalSponsors sums the sponsorship counters of every event.
func (db *DB) TotalSponsors(ctx context.Context) (uint64, error) {
	var total uint64
	err := db.bun.NewSelect().
		Model((*models.Event)(nil)).
		ColumnExpr("COALESCE(SUM(sponsors), 0)").
		Scan(ctx, &total)
	return total, err
}

func (db *DB) CountMints(ctx context.Context) (int, error) {
	return db.bun.NewSelect().Model((*models.Mint)(nil)).Count(ctx)
}

func (db *DB) CountTokenAccounts(ctx context.Context) (int, error) {
	return db.bun.NewSelect().Model((*models.TokenAccount)(nil)).Count(ctx)
}

func (db *DB) CountWallets(ctx context.Context) (int, error) {
	return db.bun.NewSelect().Model((*models.Wallet)(nil)).Count(ctx)
}

// HolderData is one non-empty token account of a mint.
type HolderData struct {
	Owner   string `bun:"owner"`
	Account string `bun:"address"`
	Amount  uint64 `bun:"amount"`
}

// GetHoldersByMint lists the largest balances of mint first.
func (db *DB) GetHoldersByMint(ctx context.Context, mint string, limit int) ([]HolderData, error) {
	var holders []HolderData
	err := db.bun.NewSelect().
		TableExpr("token_accounts").
		ColumnExpr("owner, address, amount").
		Where("mint = ?", mint).
		Where("amount > 0").
		OrderExpr("amount DESC, owner ASC").
		Limit(limit).
		Scan(ctx, &holders)
	return holders, err
}

// DailyCreationData counts events created on one calendar day.
type DailyCreationData struct {
	Day    string `bun:"day"`
	Events int    `bun:"events"`
}

// GetDailyEventCreations groups events by creation date. The day is taken
// from the text form of created_at, which both dialects start with
// YYYY-MM-DD.
func (db *DB) GetDailyEventCreations(ctx context.Context) ([]DailyCreationData, error) {
	var days []DailyCreationData
	err := db.bun.NewSelect().
		TableExpr("events").
		ColumnExpr("SUBSTR(CAST(created_at AS TEXT), 1, 10) AS day").
		ColumnExpr("COUNT(*) AS events").
		GroupExpr("day").
		OrderExpr("day").
		Scan(ctx, &days)
	return days, err
}
