package middleware

import (
	"net/http"

	"github.com/airflowfield/dashboard/internal/session"
)

// Session reads the credential once per request and injects the result into the
// context. It never rejects a request; the role gates decide.
func Session(holder *session.Holder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, token, err := holder.Read(r)
			if err == nil {
				annotate(r.Context(), id)
			}
			ctx := session.WithState(r.Context(), session.State{Identity: id, Token: token, Err: err})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles gates a route subtree. Visitors without a usable credential go to the
// login page, visitors whose role is not allowed go to the root.
func RequireRoles(roles ...session.Role) func(http.Handler) http.Handler {
	allowed := append([]session.Role(nil), roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := session.StateFrom(r.Context())
			switch session.Gate(st.Identity, st.Err, allowed...) {
			case session.GateAuthorized:
				next.ServeHTTP(w, r)
			case session.GateUnauthorized:
				if wantsJSON(r) {
					writeError(w, http.StatusForbidden, "FORBIDDEN", "rol sin acceso")
					return
				}
				http.Redirect(w, r, "/", http.StatusSeeOther)
			default:
				if wantsJSON(r) {
					writeError(w, http.StatusUnauthorized, "AUTH", "sesión requerida")
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			}
		})
	}
}

// GetSubject returns the subject id of the authenticated caller.
func GetSubject(r *http.Request) string {
	id, ok := session.FromContext(r.Context())
	if !ok {
		return ""
	}
	return id.SubjectID
}
