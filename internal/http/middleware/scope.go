package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/airflowfield/dashboard/internal/util"
)

// CookieWork carries the work item a worker selected on the dashboard.
const CookieWork = "work_id"

const workScopeKey contextKey = "work"

type contextKey string

// SelectWork remembers the chosen work item for the detail pages.
func SelectWork(w http.ResponseWriter, workID string, secure bool) bool {
	workID = strings.TrimSpace(workID)
	if !util.ValidID(workID) {
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieWork,
		Value:    workID,
		Path:     "/worker",
		MaxAge:   int((2 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return true
}

// WorkScope requires a selected work item; direct visits without one are sent back
// to the worker dashboard.
func WorkScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieWork)
		if err != nil || !util.ValidID(cookie.Value) {
			http.Redirect(w, r, "/worker/dashboard", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), workScopeKey, cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetWork returns the work item selected for the request.
func GetWork(ctx context.Context) string {
	val, _ := ctx.Value(workScopeKey).(string)
	return val
}
