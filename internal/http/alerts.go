package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/feed"
	"github.com/airflowfield/dashboard/internal/util"
)

const streamHeartbeat = 25 * time.Second

// ListAlerts returns the caller's inbox merged with the API backlog.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	email := identity(r).Email
	if email == "" {
		WriteError(w, http.StatusBadRequest, "NO_IDENTITY", msgSessionNeeded, nil)
		return
	}
	ticket := h.inbox.Begin(email)
	backlog, err := h.api.ListAlerts(r.Context(), token(r))
	if err != nil {
		WriteUpstreamError(w, err, msgLoadFailed)
		return
	}
	alerts, err := h.inbox.LoadAt(r.Context(), email, ticket, backlog)
	if err != nil {
		h.logger.Error().Err(err).Str("email", email).Msg("alert inbox load failed")
		alerts = backlog
	}
	if alerts == nil {
		alerts = []backend.Alert{}
	}
	WriteJSON(w, http.StatusOK, alerts)
}

func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	if err := h.api.DeleteAlert(r.Context(), token(r), id); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.fail(w, r, err)
		return
	}
	if email := identity(r).Email; email != "" {
		if err := h.inbox.Remove(r.Context(), email, id); err != nil {
			h.logger.Warn().Err(err).Str("alert", id).Msg("alert inbox remove failed")
		}
	}
	http.Redirect(w, r, "/worker/dashboard", http.StatusSeeOther)
}

// AlertStream relays alerts pushed for the caller as server-sent events until the
// browser goes away.
func (h *Handler) AlertStream(w http.ResponseWriter, r *http.Request) {
	email := identity(r).Email
	if email == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming no soportado", http.StatusInternalServerError)
		return
	}

	listener, err := h.feeds.Acquire(email)
	if err != nil {
		h.logger.Error().Err(err).Str("email", email).Msg("alert stream subscribe failed")
		http.Error(w, "canal de alertas no disponible", http.StatusServiceUnavailable)
		return
	}
	defer listener.Release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case alert, ok := <-listener.C:
			if !ok {
				return
			}
			raw, err := json.Marshal(alert)
			if err != nil {
				h.logger.Warn().Err(err).Msg("alert encode failed")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", feed.EventNewAlert, raw); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
