package ledger

import "errors"

var (
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientFunding   = errors.New("insufficient lamports to fund account rent")
	ErrMintAuthorityMismatch = errors.New("signer is not the mint authority")
	ErrOwnerMismatch         = errors.New("signer does not own the source account")
	ErrMintMismatch          = errors.New("token accounts belong to different mints")
	ErrAccountExists         = errors.New("account already exists")
	ErrAccountNotFound       = errors.New("account not found")
	ErrSupplyOverflow        = errors.New("mint supply overflow")
	ErrBalanceOverflow       = errors.New("balance overflow")
)
