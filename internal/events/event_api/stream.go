package event_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-event-ledger/internal/auth"
	"ms-event-ledger/internal/models"
	"ms-event-ledger/internal/utils"
)

// StreamEvent streams committed notifications for one event as server-sent
// events.
func (h *Handler) StreamEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := pathAddress(w, r, "event")
	if !ok {
		return
	}
	if _, err := h.Service.GetEvent(r.Context(), event); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.stream(w, r, "event", event.String(), h.Stream.SubscribeToEvent(r.Context(), event.String()))
}

// StreamMine streams notifications for operations the caller signed.
func (h *Handler) StreamMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Identity(r.Context())
	h.stream(w, r, "actor", caller.String(), h.Stream.SubscribeToActor(r.Context(), caller.String()))
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, scope, key string, ch <-chan models.LedgerNotification) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, codeInternalError, "streaming unsupported")
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	setupSSEHeaders(w)
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"%s\":\"%s\"}\n\n", scope, key)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to %s stream %s", scope, key))

	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize notification: %v", err))
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Type, data)
			flusher.Flush()
		case <-r.Context().Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from %s stream %s", scope, key))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
