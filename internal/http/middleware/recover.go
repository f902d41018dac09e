package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Recover turns a panic into a sanitized 500.
func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).
						Str("path", r.URL.Path).Msg("panic recovered")
					writeFailure(w, r, http.StatusInternalServerError, "INTERNAL", "Error interno")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
