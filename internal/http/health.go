package http

import (
	"context"
	"net/http"
	"time"
)

// Health answers without touching dependencies; the upstream watcher's last
// snapshot is included when it runs.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.upstream != nil {
		snap := h.upstream.Snapshot()
		body["upstream"] = map[string]any{
			"up":         snap.Up,
			"checked_at": snap.CheckedAt,
			"failures":   snap.Failures,
			"last_error": snap.LastError,
		}
	}
	WriteJSON(w, http.StatusOK, body)
}

// Ready checks the API origin and Redis when configured.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	apiErr := h.api.Ping(ctx)
	var redisErr error
	if h.redis != nil {
		redisErr = h.redis.Ping(ctx).Err()
	}

	if apiErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "dependencias no disponibles", map[string]any{
			"api":   errorString(apiErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
