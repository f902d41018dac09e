package http

import (
	"net/http"
	"strings"

	"github.com/airflowfield/dashboard/internal/util"
	"github.com/airflowfield/dashboard/internal/view"
)

// LoginPage renders the login form; it is also the root page.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	page := h.page(r, "Iniciar sesión", view.LoginData{})
	if r.URL.Query().Get("reason") == "self-edit" {
		page.Notice = msgSelfEdit
	}
	h.render(w, http.StatusOK, view.PageLogin, page)
}

// Login exchanges the credentials with the API and lands the user on the dashboard
// of the decoded role.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, view.PageLogin, h.loginFailed(r, ""))
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	if util.ValidateEmail(email) != nil || password == "" {
		h.render(w, http.StatusUnprocessableEntity, view.PageLogin, h.loginFailed(r, email))
		return
	}

	token, err := h.api.Login(r.Context(), email, password)
	if err != nil {
		h.logger.Info().Err(err).Str("email", email).Msg("login rejected")
		h.render(w, http.StatusUnauthorized, view.PageLogin, h.loginFailed(r, email))
		return
	}

	id, err := h.holder.Login(w, token, email)
	if err != nil {
		h.logger.Warn().Err(err).Str("email", email).Msg("login credential undecodable")
		h.render(w, http.StatusBadGateway, view.PageLogin, h.loginFailed(r, email))
		return
	}

	h.logger.Info().Str("subject", id.SubjectID).Str("role", id.Role.String()).Msg("login")
	http.Redirect(w, r, id.LandingPath(), http.StatusSeeOther)
}

func (h *Handler) loginFailed(r *http.Request, email string) view.Page {
	page := h.page(r, "Iniciar sesión", view.LoginData{Email: email})
	page.Dialog = msgLoginFailed
	return page
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.holder.Logout(w, r); err != nil {
		h.logger.Warn().Err(err).Msg("logout revoke failed")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
