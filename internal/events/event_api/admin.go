package event_api

import (
	"crypto/subtle"
	"net/http"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/ledger"
	"ms-event-ledger/internal/utils"
)

const adminKeyHeader = "X-Admin-Key"

type airdropRequest struct {
	Address  address.Pubkey `json:"address"`
	Lamports uint64         `json:"lamports"`
}

type createMintRequest struct {
	Decimals    uint8               `json:"decimals"`
	Allocations []ledger.Allocation `json:"allocations"`
}

// requireAdmin hides admin routes unless enabled and checks the shared key.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.AdminEnabled || h.Faucet == nil {
			utils.WriteError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		key := r.Header.Get(adminKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.AdminKey)) != 1 {
			h.Logger.LogSecurity("ADMIN_REJECTED", r.Method+" "+r.URL.Path)
			utils.WriteError(w, http.StatusUnauthorized, codeAdminKeyRequired, "valid "+adminKeyHeader+" header required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Airdrop(w http.ResponseWriter, r *http.Request) {
	var req airdropRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Address.IsZero() || req.Lamports == 0 {
		utils.WriteError(w, http.StatusBadRequest, codeInvalidRequestBody, "address and lamports are required")
		return
	}

	wallet, err := h.Faucet.Airdrop(r.Context(), req.Address, req.Lamports)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, wallet)
}

func (h *Handler) CreateMint(w http.ResponseWriter, r *http.Request) {
	var req createMintRequest
	if !decode(w, r, &req) {
		return
	}

	mint, err := h.Faucet.CreateMint(r.Context(), req.Decimals, req.Allocations)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, mint)
}

func (h *Handler) IssueTokens(w http.ResponseWriter, r *http.Request) {
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}
	var req ledger.Allocation
	if !decode(w, r, &req) {
		return
	}
	if req.Owner.IsZero() || req.Amount == 0 {
		utils.WriteError(w, http.StatusBadRequest, codeInvalidRequestBody, "owner and amount are required")
		return
	}

	if err := h.Faucet.Issue(r.Context(), mint, req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, req)
}
