package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airflowfield/dashboard/internal/session"
)

type logKey struct{}

// requestLog collects fields that inner middleware learn after Logging has run.
type requestLog struct {
	identity session.Identity
	known    bool
}

// annotate records the caller on the request log line, if Logging is mounted.
func annotate(ctx context.Context, id session.Identity) {
	if entry, ok := ctx.Value(logKey{}).(*requestLog); ok {
		entry.identity, entry.known = id, true
	}
}

// Logging writes one structured line per request. Mount it before Session so the
// line is written even when reading the session fails.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			entry := &requestLog{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logKey{}, entry)))

			event := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event = event.Str("method", r.Method).Str("path", r.URL.Path).
				Int("status", ww.Status()).Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("ip", realIPFromRequest(r))

			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				event = event.Str("request_id", reqID)
			}
			if entry.known {
				event = event.Str("subject", entry.identity.SubjectID).Str("role", entry.identity.Role.String())
			}
			if ua := r.Header.Get("User-Agent"); ua != "" {
				event = event.Str("user_agent", ua)
			}

			event.Msg("http_request")
		})
	}
}
