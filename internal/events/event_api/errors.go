package event_api

import (
	"errors"
	"net/http"

	events "ms-event-ledger/internal/events/service"
	"ms-event-ledger/internal/ledger"
	"ms-event-ledger/internal/utils"
)

const (
	codeInvalidRequestBody    = "invalid_request_body"
	codeInvalidAddress        = "invalid_address"
	codeAlreadyExists         = "already_exists"
	codeUnauthorized          = "unauthorized"
	codeEventClosed           = "event_closed"
	codePriceOverflow         = "price_overflow"
	codeInsufficientBalance   = "insufficient_balance"
	codeInsufficientTreasury  = "insufficient_treasury_balance"
	codeMintAuthorityMismatch = "mint_authority_mismatch"
	codeInsufficientFunding   = "insufficient_funding"
	codeEventBusy             = "event_busy"
	codeEventNotFound         = "event_not_found"
	codeInvalidQuantity       = "invalid_quantity"
	codeNameTooLong           = "name_too_long"
	codeInvalidPrice          = "invalid_price"
	codeInvalidAcceptedMint   = "invalid_accepted_mint"
	codeAccountNotFound       = "account_not_found"
	codeSupplyOverflow        = "supply_overflow"
	codeAdminKeyRequired      = "admin_key_required"
	codeNotFound              = "not_found"
	codeServiceUnavailable    = "service_unavailable"
	codeInternalError         = "internal_error"
)

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{events.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists},
	{events.ErrUnauthorized, http.StatusForbidden, codeUnauthorized},
	{events.ErrEventClosed, http.StatusConflict, codeEventClosed},
	{events.ErrPriceOverflow, http.StatusUnprocessableEntity, codePriceOverflow},
	{events.ErrInsufficientBalance, http.StatusUnprocessableEntity, codeInsufficientBalance},
	{events.ErrInsufficientTreasuryBalance, http.StatusUnprocessableEntity, codeInsufficientTreasury},
	{events.ErrMintAuthorityMismatch, http.StatusConflict, codeMintAuthorityMismatch},
	{events.ErrInsufficientFunding, http.StatusPaymentRequired, codeInsufficientFunding},
	{events.ErrEventBusy, http.StatusConflict, codeEventBusy},
	{events.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{events.ErrInvalidQuantity, http.StatusBadRequest, codeInvalidQuantity},
	{events.ErrNameTooLong, http.StatusBadRequest, codeNameTooLong},
	{events.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{events.ErrInvalidAcceptedMint, http.StatusBadRequest, codeInvalidAcceptedMint},
	{ledger.ErrAccountNotFound, http.StatusNotFound, codeAccountNotFound},
	{ledger.ErrSupplyOverflow, http.StatusUnprocessableEntity, codeSupplyOverflow},
	{ledger.ErrBalanceOverflow, http.StatusUnprocessableEntity, codeSupplyOverflow},
}

// writeServiceError maps an operation error to its status and code. Unknown
// errors are logged and reported without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			utils.WriteError(w, e.status, e.code, err.Error())
			return
		}
	}
	h.Logger.Error("API", r.Method+" "+r.URL.Path+": "+err.Error())
	utils.WriteError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
