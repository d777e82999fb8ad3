package event_api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/auth"
	events "ms-event-ledger/internal/events/service"
	"ms-event-ledger/internal/ledger"
	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/models"
	"ms-event-ledger/internal/sse"
	"ms-event-ledger/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	Service  *events.Service
	Faucet   *ledger.Faucet
	DB       *bun.DB
	Verifier *auth.Verifier
	Stream   *sse.Emitter
	Logger   *logger.Logger

	AdminEnabled bool
	AdminKey     string
}

// RegisterRoutes mounts the event API on r, normally the /api/v1 sub-router.
// Reads are public; mutations need a bearer token; admin routes need the
// admin key.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/events", h.ListEvents)
	r.Get("/events/{event}", h.GetEvent)
	r.Get("/events/{event}/stream", h.StreamEvent)
	r.Get("/authorities/{authority}/event", h.GetEventByAuthority)
	r.Get("/accounts/{owner}/tokens/{mint}", h.GetCustody)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.Verifier, h.Logger))
		r.Post("/events", h.CreateEvent)
		r.Post("/events/{event}/tickets", h.BuyTickets)
		r.Post("/events/{event}/sponsorships", h.SponsorEvent)
		r.Post("/events/{event}/withdrawals", h.WithdrawFunds)
		r.Post("/events/{event}/close", h.CloseEvent)
		r.Get("/me/stream", h.StreamMine)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/airdrops", h.Airdrop)
		r.Post("/mints", h.CreateMint)
		r.Post("/mints/{mint}/issue", h.IssueTokens)
	})
}

type createEventRequest struct {
	Name         string         `json:"name"`
	TicketPrice  uint64         `json:"ticket_price"`
	AcceptedMint address.Pubkey `json:"accepted_mint"`
}

type quantityRequest struct {
	Quantity uint64 `json:"quantity"`
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

type eventResponse struct {
	*models.Event
	Vaults *events.VaultBalances `json:"vaults,omitempty"`
}

type custodyResponse struct {
	Owner   string `json:"owner"`
	Mint    string `json:"mint"`
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		utils.WriteError(w, http.StatusServiceUnavailable, codeServiceUnavailable, "database unavailable")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !decode(w, r, &req) {
		return
	}
	if req.AcceptedMint.IsZero() {
		utils.WriteError(w, http.StatusBadRequest, codeInvalidRequestBody, "accepted_mint is required")
		return
	}
	caller, _ := auth.Identity(r.Context())

	ev, err := h.Service.CreateEvent(r.Context(), events.CreateEventInput{
		Name:         req.Name,
		TicketPrice:  req.TicketPrice,
		AcceptedMint: req.AcceptedMint,
	}, caller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, eventResponse{Event: ev})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.Service.ListEvents(r.Context(), activeOnly, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := pathAddress(w, r, "event")
	if !ok {
		return
	}
	ev, err := h.Service.GetEvent(r.Context(), event)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeEventWithVaults(w, r, ev)
}

func (h *Handler) GetEventByAuthority(w http.ResponseWriter, r *http.Request) {
	authority, ok := pathAddress(w, r, "authority")
	if !ok {
		return
	}
	ev, err := h.Service.GetEventByAuthority(r.Context(), authority)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeEventWithVaults(w, r, ev)
}

func (h *Handler) BuyTickets(w http.ResponseWriter, r *http.Request) {
	event, ok := pathAddress(w, r, "event")
	if !ok {
		return
	}
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	caller, _ := auth.Identity(r.Context())

	purchase, err := h.Service.BuyTickets(r.Context(), event, req.Quantity, caller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, purchase)
}

func (h *Handler) SponsorEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := pathAddress(w, r, "event")
	if !ok {
		return
	}
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	caller, _ := auth.Identity(r.Context())

	ev, err := h.Service.SponsorEvent(r.Context(), event, req.Quantity, caller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, eventResponse{Event: ev})
}

func (h *Handler) WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	event, ok := pathAddress(w, r, "event")
	if !ok {
		return
	}
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	caller, _ := auth.Identity(r.Context())

	withdrawal, err := h.Service.WithdrawFunds(r.Context(), event, req.Amount, caller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, withdrawal)
}

func (h *Handler) CloseEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := pathAddress(w, r, "event")
	if !ok {
		return
	}
	caller, _ := auth.Identity(r.Context())

	ev, err := h.Service.CloseEvent(r.Context(), event, caller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, eventResponse{Event: ev})
}

func (h *Handler) GetCustody(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	mint, ok := pathAddress(w, r, "mint")
	if !ok {
		return
	}

	account, amount, err := h.Service.CustodyBalance(r.Context(), owner, mint)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, custodyResponse{
		Owner:   owner.String(),
		Mint:    mint.String(),
		Account: account.String(),
		Amount:  amount,
	})
}

func (h *Handler) writeEventWithVaults(w http.ResponseWriter, r *http.Request, ev *models.Event) {
	vaults, err := h.Service.Vaults(r.Context(), ev)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, eventResponse{Event: ev, Vaults: vaults})
}

func pathAddress(w http.ResponseWriter, r *http.Request, param string) (address.Pubkey, bool) {
	addr, err := address.ParsePubkey(chi.URLParam(r, param))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, codeInvalidAddress, param+": "+err.Error())
		return address.Pubkey{}, false
	}
	return addr, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.WriteError(w, http.StatusBadRequest, codeInvalidRequestBody, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
