package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/fetch"
	"github.com/airflowfield/dashboard/internal/filter"
	"github.com/airflowfield/dashboard/internal/geo"
	"github.com/airflowfield/dashboard/internal/util"
	"github.com/airflowfield/dashboard/internal/view"
)

func (h *Handler) OfficeDashboard(w http.ResponseWriter, r *http.Request) {
	h.officeDashboard(w, r, http.StatusOK, backend.AlertInput{}, "")
}

func (h *Handler) officeDashboard(w http.ResponseWriter, r *http.Request, status int, alertForm backend.AlertInput, dialog string) {
	data, err := h.loadOffice(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data.AlertForm = alertForm

	page := h.page(r, "Panel de oficina", data)
	page.Dialog = dialog
	if r.URL.Query().Get("sent") == "1" {
		page.Notice = msgAlertSent
	}
	h.render(w, status, view.PageOfficeDashboard, page)
}

func (h *Handler) loadOffice(r *http.Request) (view.OfficeData, error) {
	var (
		works []backend.Work
		stats backend.Statistics
	)
	tok := token(r)
	err := fetch.All(r.Context(),
		fetch.Into(&works, func(ctx context.Context) ([]backend.Work, error) { return h.api.ListWorks(ctx, tok) }),
		fetch.Into(&stats, func(ctx context.Context) (backend.Statistics, error) { return h.api.Statistics(ctx, tok) }),
	)
	if err != nil {
		return view.OfficeData{}, err
	}

	q := filter.WorkQueryFrom(r.URL.Query())
	visible := filter.Works(works, q)
	return view.OfficeData{
		Stats: stats,
		Works: visible,
		Query: q,
		Map:   geo.NewView(visible, !q.Empty()),
	}, nil
}

// OfficeMap returns the map view of the filtered works for client-side refreshes.
func (h *Handler) OfficeMap(w http.ResponseWriter, r *http.Request) {
	works, err := h.api.ListWorks(r.Context(), token(r))
	if err != nil {
		WriteUpstreamError(w, err, msgLoadFailed)
		return
	}
	q := filter.WorkQueryFrom(r.URL.Query())
	WriteJSON(w, http.StatusOK, geo.NewView(filter.Works(works, q), !q.Empty()))
}

func (h *Handler) CreateWorkForm(w http.ResponseWriter, r *http.Request) {
	form := view.WorkForm{Status: backend.StatusPending}
	h.renderWorkForm(w, r, http.StatusOK, workFormData("/office/createWork", false, form), "")
}

func (h *Handler) CreateWork(w http.ResponseWriter, r *http.Request) {
	form, in, err := parseWorkForm(r)
	data := workFormData("/office/createWork", false, form)
	if err != nil {
		h.renderWorkForm(w, r, http.StatusUnprocessableEntity, data, err.Error())
		return
	}
	if err := h.api.CreateWork(r.Context(), token(r), in); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.renderWorkForm(w, r, formStatus(err), data, backend.Message(err, "Error al crear trabajo"))
		return
	}
	http.Redirect(w, r, "/office/dashboard", http.StatusSeeOther)
}

func (h *Handler) EditWorkForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	work, err := h.api.GetWork(r.Context(), token(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	form := view.WorkForm{
		Title:       work.Title,
		Description: work.Description,
		Status:      work.Status,
		Address:     work.Address,
		Latitude:    formatCoordinate(work.Latitude),
		Longitude:   formatCoordinate(work.Longitude),
		WorkerEmail: work.AssigneeEmail(),
	}
	h.renderWorkForm(w, r, http.StatusOK, workFormData("/office/editWork/"+id, true, form), "")
}

func (h *Handler) EditWork(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	form, in, err := parseWorkForm(r)
	data := workFormData("/office/editWork/"+id, true, form)
	if err != nil {
		h.renderWorkForm(w, r, http.StatusUnprocessableEntity, data, err.Error())
		return
	}
	if err := h.api.UpdateWork(r.Context(), token(r), id, in); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.renderWorkForm(w, r, formStatus(err), data, backend.Message(err, msgSaveFailed))
		return
	}
	http.Redirect(w, r, "/office/dashboard", http.StatusSeeOther)
}

func (h *Handler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	if err := h.api.DeleteWork(r.Context(), token(r), id); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.officeDashboard(w, r, formStatus(err), backend.AlertInput{}, backend.Message(err, "Error al eliminar trabajo"))
		return
	}
	http.Redirect(w, r, "/office/dashboard", http.StatusSeeOther)
}

// DownloadWorkReport streams the PDF with every report of a work item.
func (h *Handler) DownloadWorkReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	dl, err := h.api.WorkReportPDF(r.Context(), token(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=reportes_trabajo_%s.pdf", id))
	if dl.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, dl.Body); err != nil {
		h.logger.Warn().Err(err).Str("work", id).Msg("report download interrupted")
	}
}

// SendAlert posts an alert to a worker. A failure keeps the typed values.
func (h *Handler) SendAlert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.officeDashboard(w, r, http.StatusBadRequest, backend.AlertInput{}, err.Error())
		return
	}
	in := backend.AlertInput{
		ReceiverEmail: strings.TrimSpace(r.PostFormValue("receiver_email")),
		Title:         strings.TrimSpace(r.PostFormValue("title")),
		Message:       strings.TrimSpace(r.PostFormValue("message")),
		Type:          strings.TrimSpace(r.PostFormValue("type")),
	}
	if err := validateAlert(in); err != nil {
		h.officeDashboard(w, r, http.StatusUnprocessableEntity, in, err.Error())
		return
	}
	if err := h.api.SendAlert(r.Context(), token(r), in); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.officeDashboard(w, r, formStatus(err), in, backend.Message(err, "Error al enviar alerta"))
		return
	}
	h.logger.Info().Str("receiver", in.ReceiverEmail).Msg("alert sent")
	http.Redirect(w, r, "/office/dashboard?sent=1", http.StatusSeeOther)
}

func validateAlert(in backend.AlertInput) error {
	if err := util.ValidateEmail(in.ReceiverEmail); err != nil {
		return err
	}
	if err := util.RequireString(in.Title, "título"); err != nil {
		return err
	}
	return util.RequireString(in.Message, "mensaje")
}

func (h *Handler) renderWorkForm(w http.ResponseWriter, r *http.Request, status int, data view.WorkFormData, dialog string) {
	title := "Crear trabajo"
	if data.Editing {
		title = "Editar trabajo"
	}
	page := h.page(r, title, data)
	page.Dialog = dialog
	h.render(w, status, view.PageWorkForm, page)
}

func workFormData(action string, editing bool, form view.WorkForm) view.WorkFormData {
	return view.WorkFormData{Editing: editing, Action: action, Form: form, Statuses: backend.Statuses}
}

// parseWorkForm returns the raw values for re-rendering along with the typed input.
func parseWorkForm(r *http.Request) (view.WorkForm, backend.WorkInput, error) {
	if err := r.ParseForm(); err != nil {
		return view.WorkForm{}, backend.WorkInput{}, err
	}
	form := view.WorkForm{
		Title:       strings.TrimSpace(r.PostFormValue("job_title")),
		Description: strings.TrimSpace(r.PostFormValue("job_description")),
		Status:      strings.TrimSpace(r.PostFormValue("job_status")),
		Address:     strings.TrimSpace(r.PostFormValue("job_address")),
		Latitude:    strings.TrimSpace(r.PostFormValue("job_latitude")),
		Longitude:   strings.TrimSpace(r.PostFormValue("job_longitude")),
		WorkerEmail: strings.TrimSpace(r.PostFormValue("user_email")),
	}

	if err := util.RequireString(form.Title, "título"); err != nil {
		return form, backend.WorkInput{}, err
	}
	if err := util.RequireString(form.Description, "descripción"); err != nil {
		return form, backend.WorkInput{}, err
	}
	if err := util.OneOf(form.Status, "estado", backend.Statuses...); err != nil {
		return form, backend.WorkInput{}, err
	}
	if err := util.RequireString(form.Address, "dirección"); err != nil {
		return form, backend.WorkInput{}, err
	}
	lat, err := util.ParseCoordinate(form.Latitude, "latitud", 90)
	if err != nil {
		return form, backend.WorkInput{}, err
	}
	lng, err := util.ParseCoordinate(form.Longitude, "longitud", 180)
	if err != nil {
		return form, backend.WorkInput{}, err
	}
	if err := util.ValidateEmail(form.WorkerEmail); err != nil {
		return form, backend.WorkInput{}, err
	}

	return form, backend.WorkInput{
		Title:       form.Title,
		Description: form.Description,
		Status:      form.Status,
		Address:     form.Address,
		Latitude:    lat,
		Longitude:   lng,
		WorkerEmail: form.WorkerEmail,
	}, nil
}

func formatCoordinate(c backend.Coordinate) string {
	return strconv.FormatFloat(float64(c), 'f', -1, 64)
}
