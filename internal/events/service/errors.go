package events

import (
	"errors"

	"ms-event-ledger/internal/ledger"
)

var (
	ErrAlreadyExists               = errors.New("event already exists for this authority")
	ErrUnauthorized                = errors.New("signer is not the event authority")
	ErrEventClosed                 = errors.New("event is closed")
	ErrPriceOverflow               = errors.New("ticket price times quantity overflows")
	ErrInsufficientTreasuryBalance = errors.New("treasury balance is below the requested amount")
	ErrEventNotFound               = errors.New("event not found")
	ErrEventBusy                   = errors.New("event is locked by another operation")
	ErrInvalidQuantity             = errors.New("quantity must be greater than zero")
	ErrNameTooLong                 = errors.New("event name exceeds 40 bytes")
	ErrInvalidPrice                = errors.New("ticket price exceeds the ledger amount limit")
	ErrInvalidAcceptedMint         = errors.New("accepted mint does not exist")

	// Raised by the ledger and surfaced unchanged.
	ErrInsufficientBalance   = ledger.ErrInsufficientBalance
	ErrMintAuthorityMismatch = ledger.ErrMintAuthorityMismatch
	ErrInsufficientFunding   = ledger.ErrInsufficientFunding
)
