package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-event-ledger/internal/models"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("event not found")

// DB stores event records. Bun is a *bun.DB or the bun.Tx of the running
// operation.
type DB struct {
	Bun bun.IDB
}

func (d *DB) InsertEvent(ctx context.Context, event *models.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if _, err := d.Bun.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("insert event %s: %w", event.Address, err)
	}
	return nil
}

func (d *DB) GetEvent(ctx context.Context, address string) (*models.Event, error) {
	return d.getBy(ctx, "address", address)
}

func (d *DB) GetEventByAuthority(ctx context.Context, authority string) (*models.Event, error) {
	return d.getBy(ctx, "authority", authority)
}

func (d *DB) getBy(ctx context.Context, column, value string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", column, value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load event by %s: %w", column, err)
	}
	return &event, nil
}

// UpdateEvent writes the mutable fields of an event: the activity flag and
// the sponsorship counter.
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now()
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("is_active", "sponsors", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event %s: %w", event.Address, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update event %s: %w", event.Address, ErrNotFound)
	}
	return nil
}

// ListEvents returns events newest first; activeOnly filters closed ones out.
func (d *DB) ListEvents(ctx context.Context, activeOnly bool, limit int) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().
		Model(&events).
		Order("created_at DESC").
		Limit(limit)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
