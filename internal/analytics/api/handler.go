package analytics_api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/analytics"
	eventdb "ms-event-ledger/internal/events/db"
	"ms-event-ledger/internal/logger"
	"ms-event-ledger/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler serves the read-only analytics endpoints.
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// RegisterRoutes mounts /analytics on r, normally the /api/v1 sub-router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/summary", h.GetSummary)
		r.Get("/events/daily", h.GetDailyEventCreations)
		r.Get("/events/{event}/sponsors", h.GetEventSponsors)
	})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetDailyEventCreations(w http.ResponseWriter, r *http.Request) {
	days, err := h.Service.DailyEventCreations(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, days)
}

func (h *Handler) GetEventSponsors(w http.ResponseWriter, r *http.Request) {
	event, err := address.ParsePubkey(chi.URLParam(r, "event"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid_address", "event: "+err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	board, err := h.Service.EventSponsors(r.Context(), event, limit)
	if errors.Is(err, eventdb.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "event_not_found", err.Error())
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, board)
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.Logger.Error("ANALYTICS", fmt.Sprintf("Query failed: %v", err))
	utils.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
