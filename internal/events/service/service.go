package events

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"ms-event-ledger/internal/address"
	eventdb "ms-event-ledger/internal/events/db"
	"ms-event-ledger/internal/kafka"
	"ms-event-ledger/internal/ledger"
	"ms-event-ledger/internal/lock"
	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenLedger is the custody primitive set the event operations run on.
type TokenLedger interface {
	ChargeRent(ctx context.Context, payer address.Pubkey, space int) error
	CreateMint(ctx context.Context, addr address.Pubkey, decimals uint8, authority, payer address.Pubkey) (*models.Mint, error)
	GetMint(ctx context.Context, addr address.Pubkey) (*models.Mint, error)
	CreateTokenAccount(ctx context.Context, addr, mint, owner, payer address.Pubkey) (*models.TokenAccount, error)
	EnsureAssociatedTokenAccount(ctx context.Context, owner, mint, payer address.Pubkey) (*models.TokenAccount, error)
	GetTokenAccount(ctx context.Context, addr address.Pubkey) (*models.TokenAccount, error)
	Balance(ctx context.Context, addr address.Pubkey) (uint64, error)
	Transfer(ctx context.Context, from, to address.Pubkey, amount uint64, authority address.Pubkey) error
	MintTo(ctx context.Context, mint, to address.Pubkey, amount uint64, authority address.Pubkey) error
}

type EventDBLayer interface {
	InsertEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, address string) (*models.Event, error)
	GetEventByAuthority(ctx context.Context, authority string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context, activeOnly bool, limit int) ([]models.Event, error)
}

// Service runs the event operations. Each mutation holds the event's lock
// and executes in a single database transaction; Ledger and Events are bound
// to that transaction.
type Service struct {
	DB        *bun.DB
	ProgramID address.Pubkey
	Ledger    func(bun.IDB) TokenLedger
	Events    func(bun.IDB) EventDBLayer
	Locker    lock.Locker
	Publisher kafka.Publisher
	Logger    *logger.Logger
}

func NewService(db *bun.DB, programID address.Pubkey, locker lock.Locker, publisher kafka.Publisher, log *logger.Logger) *Service {
	return &Service{
		DB:        db,
		ProgramID: programID,
		Ledger:    func(idb bun.IDB) TokenLedger { return &ledger.DB{Bun: idb} },
		Events:    func(idb bun.IDB) EventDBLayer { return &eventdb.DB{Bun: idb} },
		Locker:    locker,
		Publisher: publisher,
		Logger:    log,
	}
}

type CreateEventInput struct {
	Name         string
	TicketPrice  uint64
	AcceptedMint address.Pubkey
}

// TicketPurchase describes a completed purchase. It is not persisted.
type TicketPurchase struct {
	Event    string `json:"event"`
	Buyer    string `json:"buyer"`
	Quantity uint64 `json:"quantity"`
	Amount   uint64 `json:"amount"`
}

type Withdrawal struct {
	Event       string `json:"event"`
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
}

type VaultBalances struct {
	Treasury         uint64 `json:"treasury"`
	Profits          uint64 `json:"profits"`
	EventTokenSupply uint64 `json:"event_token_supply"`
}

// ---------------- EVENT REGISTRY ----------------

// CreateEvent allocates the event record, its event token and both vaults,
// all paid for by authority.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput, authority address.Pubkey) (*models.Event, error) {
	if len(in.Name) > models.EventNameMaxLen {
		return nil, ErrNameTooLong
	}
	if in.TicketPrice > ledger.MaxAmount {
		return nil, ErrInvalidPrice
	}

	addrs, err := address.DeriveEventAddresses(s.ProgramID, authority)
	if err != nil {
		return nil, err
	}

	var created *models.Event
	err = s.mutate(ctx, addrs.Event, func(ctx context.Context, tx bun.Tx) error {
		l, store := s.Ledger(tx), s.Events(tx)

		if _, err := store.GetEvent(ctx, addrs.Event.String()); err == nil {
			return fmt.Errorf("event %s: %w", addrs.Event, ErrAlreadyExists)
		} else if !errors.Is(err, eventdb.ErrNotFound) {
			return err
		}

		if _, err := l.GetMint(ctx, in.AcceptedMint); err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return fmt.Errorf("mint %s: %w", in.AcceptedMint, ErrInvalidAcceptedMint)
			}
			return err
		}

		if err := l.ChargeRent(ctx, authority, models.EventAccountSpace); err != nil {
			return err
		}
		if _, err := l.CreateMint(ctx, addrs.EventMint, 0, addrs.Event, authority); err != nil {
			return alreadyExists(err)
		}
		if _, err := l.CreateTokenAccount(ctx, addrs.TreasuryVault, in.AcceptedMint, addrs.Event, authority); err != nil {
			return alreadyExists(err)
		}
		if _, err := l.CreateTokenAccount(ctx, addrs.ProfitsVault, in.AcceptedMint, addrs.Event, authority); err != nil {
			return alreadyExists(err)
		}

		ev := &models.Event{
			Address:           addrs.Event.String(),
			Name:              in.Name,
			TicketPrice:       in.TicketPrice,
			IsActive:          true,
			Sponsors:          0,
			Authority:         authority.String(),
			AcceptedMint:      in.AcceptedMint.String(),
			EventMint:         addrs.EventMint.String(),
			TreasuryVault:     addrs.TreasuryVault.String(),
			ProfitsVault:      addrs.ProfitsVault.String(),
			EventBump:         addrs.EventBump,
			EventMintBump:     addrs.EventMintBump,
			TreasuryVaultBump: addrs.TreasuryVaultBump,
			ProfitsVaultBump:  addrs.ProfitsVaultBump,
		}
		if err := store.InsertEvent(ctx, ev); err != nil {
			return err
		}
		created = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogEvent("CREATE", created.Address, fmt.Sprintf("%q by %s at price %d", created.Name, created.Authority, created.TicketPrice))
	s.notify(ctx, models.NewLedgerNotification(models.NotificationEventCreated, *created, authority.String()))
	return created, nil
}

// CloseEvent deactivates the event. Closing a closed event succeeds and
// changes nothing.
func (s *Service) CloseEvent(ctx context.Context, event, signer address.Pubkey) (*models.Event, error) {
	var ev *models.Event
	changed := false
	err := s.mutate(ctx, event, func(ctx context.Context, tx bun.Tx) error {
		store := s.Events(tx)

		var err error
		ev, err = loadEvent(ctx, store, event)
		if err != nil {
			return err
		}
		if ev.Authority != signer.String() {
			return fmt.Errorf("close %s by %s: %w", event, signer, ErrUnauthorized)
		}
		if !ev.IsActive {
			return nil
		}

		ev.IsActive = false
		changed = true
		return store.UpdateEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.Logger.LogEvent("CLOSE", ev.Address, "event closed")
		s.notify(ctx, models.NewLedgerNotification(models.NotificationEventClosed, *ev, signer.String()))
	}
	return ev, nil
}

// ---------------- TICKET SALES ----------------

// BuyTickets moves ticket_price*quantity of the accepted token from the
// buyer's custody into the profits vault.
func (s *Service) BuyTickets(ctx context.Context, event address.Pubkey, quantity uint64, buyer address.Pubkey) (*TicketPurchase, error) {
	if quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	var purchase *TicketPurchase
	var ev *models.Event
	err := s.mutate(ctx, event, func(ctx context.Context, tx bun.Tx) error {
		l, store := s.Ledger(tx), s.Events(tx)

		var err error
		ev, err = loadEvent(ctx, store, event)
		if err != nil {
			return err
		}
		if !ev.IsActive {
			return fmt.Errorf("buy tickets for %s: %w", event, ErrEventClosed)
		}
		keys, err := keysOf(ev)
		if err != nil {
			return err
		}

		payer, err := fundedCustody(ctx, l, buyer, keys.accepted)
		if err != nil {
			return err
		}

		hi, amount := bits.Mul64(ev.TicketPrice, quantity)
		if hi != 0 {
			return fmt.Errorf("%d tickets at %d: %w", quantity, ev.TicketPrice, ErrPriceOverflow)
		}

		if err := l.Transfer(ctx, payer, keys.profits, amount, buyer); err != nil {
			return err
		}
		purchase = &TicketPurchase{Event: ev.Address, Buyer: buyer.String(), Quantity: quantity, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogEvent("BUY", purchase.Event, fmt.Sprintf("%s bought %d tickets for %d", purchase.Buyer, quantity, purchase.Amount))
	n := models.NewLedgerNotification(models.NotificationTicketsPurchased, *ev, buyer.String())
	n.Quantity, n.Amount = quantity, purchase.Amount
	s.notify(ctx, n)
	return purchase, nil
}

// ---------------- SPONSORSHIP ----------------

// SponsorEvent deposits quantity of the accepted token into the treasury and
// mints the same quantity of event tokens to the sponsor, signed by the event.
func (s *Service) SponsorEvent(ctx context.Context, event address.Pubkey, quantity uint64, sponsor address.Pubkey) (*models.Event, error) {
	if quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	var ev *models.Event
	err := s.mutate(ctx, event, func(ctx context.Context, tx bun.Tx) error {
		l, store := s.Ledger(tx), s.Events(tx)

		var err error
		ev, err = loadEvent(ctx, store, event)
		if err != nil {
			return err
		}
		keys, err := keysOf(ev)
		if err != nil {
			return err
		}

		payer, err := fundedCustody(ctx, l, sponsor, keys.accepted)
		if err != nil {
			return err
		}
		receiver, err := l.EnsureAssociatedTokenAccount(ctx, sponsor, keys.eventMint, sponsor)
		if err != nil {
			return err
		}
		receiverAddr, err := address.ParsePubkey(receiver.Address)
		if err != nil {
			return err
		}

		if err := l.Transfer(ctx, payer, keys.treasury, quantity, sponsor); err != nil {
			return err
		}

		scope, err := s.eventScope(ev)
		if err != nil {
			return err
		}
		if err := l.MintTo(ctx, keys.eventMint, receiverAddr, quantity, scope); err != nil {
			return err
		}

		// Supply caps the counter, so this only trips on corrupt state.
		if quantity > ledger.MaxAmount-ev.Sponsors {
			return fmt.Errorf("sponsors of %s: %w", event, ledger.ErrSupplyOverflow)
		}
		ev.Sponsors += quantity
		return store.UpdateEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogEvent("SPONSOR", ev.Address, fmt.Sprintf("%s sponsored %d, total %d", sponsor, quantity, ev.Sponsors))
	n := models.NewLedgerNotification(models.NotificationEventSponsored, *ev, sponsor.String())
	n.Quantity, n.Amount = quantity, quantity
	s.notify(ctx, n)
	return ev, nil
}

// ---------------- WITHDRAWAL ----------------

// WithdrawFunds moves amount from the treasury vault into the authority's
// custody of the accepted token, creating that custody if needed.
func (s *Service) WithdrawFunds(ctx context.Context, event address.Pubkey, amount uint64, signer address.Pubkey) (*Withdrawal, error) {
	if amount == 0 {
		return nil, ErrInvalidQuantity
	}

	var ev *models.Event
	var withdrawal *Withdrawal
	err := s.mutate(ctx, event, func(ctx context.Context, tx bun.Tx) error {
		l, store := s.Ledger(tx), s.Events(tx)

		var err error
		ev, err = loadEvent(ctx, store, event)
		if err != nil {
			return err
		}
		if ev.Authority != signer.String() {
			return fmt.Errorf("withdraw from %s by %s: %w", event, signer, ErrUnauthorized)
		}
		keys, err := keysOf(ev)
		if err != nil {
			return err
		}

		balance, err := l.Balance(ctx, keys.treasury)
		if err != nil {
			return err
		}
		if balance < amount {
			return fmt.Errorf("withdraw %d of %d: %w", amount, balance, ErrInsufficientTreasuryBalance)
		}

		dst, err := l.EnsureAssociatedTokenAccount(ctx, signer, keys.accepted, signer)
		if err != nil {
			return err
		}
		dstAddr, err := address.ParsePubkey(dst.Address)
		if err != nil {
			return err
		}

		scope, err := s.eventScope(ev)
		if err != nil {
			return err
		}
		if err := l.Transfer(ctx, keys.treasury, dstAddr, amount, scope); err != nil {
			return err
		}
		withdrawal = &Withdrawal{Event: ev.Address, Destination: dst.Address, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogEvent("WITHDRAW", ev.Address, fmt.Sprintf("%d to %s", amount, withdrawal.Destination))
	n := models.NewLedgerNotification(models.NotificationFundsWithdrawn, *ev, signer.String())
	n.Amount = amount
	s.notify(ctx, n)
	return withdrawal, nil
}

// ---------------- READS ----------------

func (s *Service) GetEvent(ctx context.Context, event address.Pubkey) (*models.Event, error) {
	return loadEvent(ctx, s.Events(s.DB), event)
}

func (s *Service) GetEventByAuthority(ctx context.Context, authority address.Pubkey) (*models.Event, error) {
	ev, err := s.Events(s.DB).GetEventByAuthority(ctx, authority.String())
	if errors.Is(err, eventdb.ErrNotFound) {
		return nil, fmt.Errorf("authority %s: %w", authority, ErrEventNotFound)
	}
	return ev, err
}

func (s *Service) ListEvents(ctx context.Context, activeOnly bool, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.Events(s.DB).ListEvents(ctx, activeOnly, limit)
}

// Vaults reports the event's vault balances and event token supply.
func (s *Service) Vaults(ctx context.Context, ev *models.Event) (*VaultBalances, error) {
	keys, err := keysOf(ev)
	if err != nil {
		return nil, err
	}
	l := s.Ledger(s.DB)

	var out VaultBalances
	if out.Treasury, err = l.Balance(ctx, keys.treasury); err != nil {
		return nil, err
	}
	if out.Profits, err = l.Balance(ctx, keys.profits); err != nil {
		return nil, err
	}
	mint, err := l.GetMint(ctx, keys.eventMint)
	if err != nil {
		return nil, err
	}
	out.EventTokenSupply = mint.Supply
	return &out, nil
}

// CustodyBalance returns owner's associated account for mint and its balance.
func (s *Service) CustodyBalance(ctx context.Context, owner, mint address.Pubkey) (address.Pubkey, uint64, error) {
	addr, err := address.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return address.Pubkey{}, 0, err
	}
	balance, err := s.Ledger(s.DB).Balance(ctx, addr)
	return addr, balance, err
}

// ---------------- HELPERS ----------------

// mutate runs fn inside one transaction while holding the event's lock. A
// held lock fails immediately with ErrEventBusy.
func (s *Service) mutate(ctx context.Context, event address.Pubkey, fn func(ctx context.Context, tx bun.Tx) error) error {
	owner := uuid.NewString()
	ok, err := s.Locker.Lock(ctx, event.String(), owner)
	if err != nil {
		return fmt.Errorf("lock event %s: %w", event, err)
	}
	if !ok {
		return fmt.Errorf("event %s: %w", event, ErrEventBusy)
	}
	defer func() {
		if err := s.Locker.Unlock(context.WithoutCancel(ctx), event.String(), owner); err != nil {
			s.Logger.Warn("LOCK", fmt.Sprintf("Failed to release lock on %s: %v", event, err))
		}
	}()

	return s.DB.RunInTx(ctx, nil, fn)
}

// eventScope is the event acting as signer: its address recomputed from the
// stored authority and bump. Only the event's own mint and vaults accept it.
func (s *Service) eventScope(ev *models.Event) (address.Pubkey, error) {
	authority, err := address.ParsePubkey(ev.Authority)
	if err != nil {
		return address.Pubkey{}, err
	}
	return address.EventAddress(s.ProgramID, authority, ev.EventBump)
}

func (s *Service) notify(ctx context.Context, n models.LedgerNotification) {
	if s.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Publisher.Publish(ctx, n); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", n.Type, n.Event, err))
	}
}

func loadEvent(ctx context.Context, store EventDBLayer, event address.Pubkey) (*models.Event, error) {
	ev, err := store.GetEvent(ctx, event.String())
	if errors.Is(err, eventdb.ErrNotFound) {
		return nil, fmt.Errorf("event %s: %w", event, ErrEventNotFound)
	}
	return ev, err
}

// fundedCustody returns owner's associated account for mint, which must
// exist and hold a positive balance.
func fundedCustody(ctx context.Context, l TokenLedger, owner, mint address.Pubkey) (address.Pubkey, error) {
	addr, err := address.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return address.Pubkey{}, err
	}
	balance, err := l.Balance(ctx, addr)
	if err != nil {
		return address.Pubkey{}, err
	}
	if balance == 0 {
		return address.Pubkey{}, fmt.Errorf("custody %s is empty: %w", addr, ErrInsufficientBalance)
	}
	return addr, nil
}

func alreadyExists(err error) error {
	if errors.Is(err, ledger.ErrAccountExists) {
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}

type eventKeys struct {
	accepted  address.Pubkey
	eventMint address.Pubkey
	treasury  address.Pubkey
	profits   address.Pubkey
}

func keysOf(ev *models.Event) (eventKeys, error) {
	var keys eventKeys
	var err error
	if keys.accepted, err = address.ParsePubkey(ev.AcceptedMint); err != nil {
		return keys, err
	}
	if keys.eventMint, err = address.ParsePubkey(ev.EventMint); err != nil {
		return keys, err
	}
	if keys.treasury, err = address.ParsePubkey(ev.TreasuryVault); err != nil {
		return keys, err
	}
	if keys.profits, err = address.ParsePubkey(ev.ProfitsVault); err != nil {
		return keys, err
	}
	return keys, nil
}
