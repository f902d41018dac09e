package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/session"
	"github.com/airflowfield/dashboard/internal/util"
	"github.com/airflowfield/dashboard/internal/view"
)

var roleOptions = []string{session.RoleAdmin.String(), session.RoleOffice.String(), session.RoleWorker.String()}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.adminDashboard(w, r, "")
}

func (h *Handler) adminDashboard(w http.ResponseWriter, r *http.Request, dialog string) {
	users, err := h.api.ListUsers(r.Context(), token(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page := h.page(r, "Usuarios", view.UsersData{Users: users})
	page.Dialog = dialog
	status := http.StatusOK
	if dialog != "" {
		status = http.StatusUnprocessableEntity
	}
	h.render(w, status, view.PageAdminDashboard, page)
}

func (h *Handler) CreateUserForm(w http.ResponseWriter, r *http.Request) {
	h.renderUserForm(w, r, http.StatusOK, userFormData("/admin/createUser", false, backend.UserInput{Role: session.RoleWorker.String()}), "")
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	in, err := parseUserForm(r, true)
	data := userFormData("/admin/createUser", false, in)
	if err != nil {
		h.renderUserForm(w, r, http.StatusUnprocessableEntity, data, err.Error())
		return
	}
	if err := h.api.CreateUser(r.Context(), token(r), in); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.renderUserForm(w, r, formStatus(err), data, backend.Message(err, "Error al crear usuario"))
		return
	}
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *Handler) EditUserForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	user, err := h.api.GetUser(r.Context(), token(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := backend.UserInput{Name: user.Name, Email: user.Email, Role: user.RoleName}
	h.renderUserForm(w, r, http.StatusOK, userFormData("/admin/editUser/"+id, true, in), "")
}

// EditUser saves the user. Editing one's own account ends the session, since the
// credential no longer matches the stored user.
func (h *Handler) EditUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	in, err := parseUserForm(r, false)
	data := userFormData("/admin/editUser/"+id, true, in)
	if err != nil {
		h.renderUserForm(w, r, http.StatusUnprocessableEntity, data, err.Error())
		return
	}
	if err := h.api.UpdateUser(r.Context(), token(r), id, in); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.renderUserForm(w, r, formStatus(err), data, backend.Message(err, msgSaveFailed))
		return
	}

	if identity(r).Is(id) {
		if err := h.holder.Invalidate(w, r); err != nil {
			h.logger.Warn().Err(err).Msg("session invalidate failed")
		}
		http.Redirect(w, r, "/login?reason=self-edit", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	if err := h.api.DeleteUser(r.Context(), token(r), id); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.adminDashboard(w, r, backend.Message(err, "Error al eliminar usuario"))
		return
	}
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *Handler) renderUserForm(w http.ResponseWriter, r *http.Request, status int, data view.UserFormData, dialog string) {
	title := "Crear usuario"
	if data.Editing {
		title = "Editar usuario"
	}
	page := h.page(r, title, data)
	page.Dialog = dialog
	h.render(w, status, view.PageUserForm, page)
}

func userFormData(action string, editing bool, in backend.UserInput) view.UserFormData {
	in.Password = ""
	return view.UserFormData{Editing: editing, Action: action, Form: in, Roles: roleOptions}
}

// parseUserForm reads the user form. On update blank fields are allowed and keep the
// stored value.
func parseUserForm(r *http.Request, create bool) (backend.UserInput, error) {
	if err := r.ParseForm(); err != nil {
		return backend.UserInput{}, err
	}
	in := backend.UserInput{
		Name:     strings.TrimSpace(r.PostFormValue("user_name")),
		Email:    strings.TrimSpace(r.PostFormValue("user_email")),
		Password: r.PostFormValue("password"),
		Role:     strings.TrimSpace(r.PostFormValue("role")),
	}
	if create || in.Name != "" {
		if err := util.RequireString(in.Name, "nombre"); err != nil {
			return in, err
		}
	}
	if create || in.Email != "" {
		if err := util.ValidateEmail(in.Email); err != nil {
			return in, err
		}
	}
	if create {
		if err := util.RequireString(in.Password, "contraseña"); err != nil {
			return in, err
		}
	}
	if create || in.Role != "" {
		if err := util.OneOf(in.Role, "rol", roleOptions...); err != nil {
			return in, err
		}
	}
	return in, nil
}
