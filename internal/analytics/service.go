package analytics

import (
	"context"
	"fmt"

	"ms-event-ledger/internal/address"
	eventdb "ms-event-ledger/internal/events/db"

	"github.com/uptrace/bun"
)

const maxHolders = 100

// Service aggregates ledger state for reporting.
type Service struct {
	db     *DB
	events *eventdb.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: NewDB(db), events: &eventdb.DB{Bun: db}}
}

// LedgerSummary counts the records held by the ledger.
type LedgerSummary struct {
	Events        int    `json:"events"`
	ActiveEvents  int    `json:"active_events"`
	TotalSponsors uint64 `json:"total_sponsors"`
	Mints         int    `json:"mints"`
	TokenAccounts int    `json:"token_accounts"`
	Wallets       int    `json:"wallets"`
}

// Sponsor is one holder of an event's event mint.
type Sponsor struct {
	Owner   string  `json:"owner"`
	Account string  `json:"account"`
	Amount  uint64  `json:"amount"`
	Share   float64 `json:"share"`
}

// SponsorBoard ranks the sponsors of one event by event tokens held.
type SponsorBoard struct {
	Event         string    `json:"event"`
	EventMint     string    `json:"event_mint"`
	TotalSponsors uint64    `json:"total_sponsors"`
	Sponsors      []Sponsor `json:"sponsors"`
}

// DailyCreations is the number of events created on Date (YYYY-MM-DD).
type DailyCreations struct {
	Date   string `json:"date"`
	Events int    `json:"events"`
}

func (s *Service) Summary(ctx context.Context) (*LedgerSummary, error) {
	var sum LedgerSummary
	var err error

	if sum.Events, err = s.db.CountEvents(ctx, false); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	if sum.ActiveEvents, err = s.db.CountEvents(ctx, true); err != nil {
		return nil, fmt.Errorf("count active events: %w", err)
	}
	if sum.TotalSponsors, err = s.db.TotalSponsors(ctx); err != nil {
		return nil, fmt.Errorf("sum sponsors: %w", err)
	}
	if sum.Mints, err = s.db.CountMints(ctx); err != nil {
		return nil, fmt.Errorf("count mints: %w", err)
	}
	if sum.TokenAccounts, err = s.db.CountTokenAccounts(ctx); err != nil {
		return nil, fmt.Errorf("count token accounts: %w", err)
	}
	if sum.Wallets, err = s.db.CountWallets(ctx); err != nil {
		return nil, fmt.Errorf("count wallets: %w", err)
	}
	return &sum, nil
}

// EventSponsors returns the event's sponsor board. Returns eventdb.ErrNotFound
// for an unknown event.
func (s *Service) EventSponsors(ctx context.Context, event address.Pubkey, limit int) (*SponsorBoard, error) {
	if limit <= 0 || limit > maxHolders {
		limit = maxHolders
	}

	ev, err := s.events.GetEvent(ctx, event.String())
	if err != nil {
		return nil, err
	}

	holders, err := s.db.GetHoldersByMint(ctx, ev.EventMint, limit)
	if err != nil {
		return nil, fmt.Errorf("load holders of %s: %w", ev.EventMint, err)
	}

	board := &SponsorBoard{
		Event:         ev.Address,
		EventMint:     ev.EventMint,
		TotalSponsors: ev.Sponsors,
		Sponsors:      make([]Sponsor, 0, len(holders)),
	}
	for _, h := range holders {
		sp := Sponsor{Owner: h.Owner, Account: h.Account, Amount: h.Amount}
		if ev.Sponsors > 0 {
			sp.Share = float64(h.Amount) / float64(ev.Sponsors)
		}
		board.Sponsors = append(board.Sponsors, sp)
	}
	return board, nil
}

func (s *Service) DailyEventCreations(ctx context.Context) ([]DailyCreations, error) {
	rows, err := s.db.GetDailyEventCreations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load daily creations: %w", err)
	}
	days := make([]DailyCreations, 0, len(rows))
	for _, r := range rows {
		days = append(days, DailyCreations{Date: r.Day, Events: r.Events})
	}
	return days, nil
}
