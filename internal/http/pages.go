package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/session"
	"github.com/airflowfield/dashboard/internal/view"
)

const (
	msgLoadFailed    = "No se pudo cargar la información"
	msgSaveFailed    = "No se pudieron guardar los cambios"
	msgNotOwner      = "No puedes modificar un reporte de otro trabajador"
	msgLoginFailed   = "Error al iniciar sesión"
	msgSelfEdit      = "Has modificado tu propio usuario. Debes iniciar sesión de nuevo."
	msgAlertSent     = "Alerta enviada"
	msgSessionNeeded = "Tu sesión no tiene un email asociado"
)

func (h *Handler) page(r *http.Request, title string, data any) view.Page {
	id, ok := session.FromContext(r.Context())
	return view.Page{Title: title, Identity: id, LoggedIn: ok, Data: data}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, page view.Page) {
	if err := h.views.Render(w, status, name, page); err != nil {
		h.logger.Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, "Error interno", http.StatusInternalServerError)
	}
}

// fail replaces the whole page with err. A 401 from the API ends the session.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.sessionExpired(w, r, err) || errors.Is(err, context.Canceled) {
		return
	}
	status := statusFor(err)
	h.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("page failed")
	h.render(w, status, view.PageError, h.page(r, "Error", backend.Message(err, msgLoadFailed)))
}

// sessionExpired clears the session and sends the user to the login page when the
// API rejected the credential.
func (h *Handler) sessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	if invErr := h.holder.Invalidate(w, r); invErr != nil {
		h.logger.Warn().Err(invErr).Msg("session invalidate failed")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

func statusFor(err error) int {
	var rf *backend.RequestFailed
	if errors.As(err, &rf) && rf.Status >= 400 && rf.Status < 500 {
		return rf.Status
	}
	return http.StatusBadGateway
}

// formStatus is the status of a form re-rendered after err.
func formStatus(err error) int {
	var rf *backend.RequestFailed
	if errors.As(err, &rf) {
		return statusFor(err)
	}
	return http.StatusUnprocessableEntity
}

func token(r *http.Request) string {
	return session.TokenFrom(r.Context())
}

func identity(r *http.Request) session.Identity {
	id, _ := session.FromContext(r.Context())
	return id
}
