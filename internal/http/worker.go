package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/fetch"
	"github.com/airflowfield/dashboard/internal/filter"
	"github.com/airflowfield/dashboard/internal/geo"
	httpmiddleware "github.com/airflowfield/dashboard/internal/http/middleware"
	"github.com/airflowfield/dashboard/internal/util"
	"github.com/airflowfield/dashboard/internal/view"
)

const maxReportUpload = 10 << 20

// WorkerDashboard lists the works assigned to the caller along with their alerts.
func (h *Handler) WorkerDashboard(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	tok := token(r)

	var (
		works   []backend.Work
		backlog []backend.Alert
	)
	tasks := []fetch.Task{
		fetch.Into(&works, func(ctx context.Context) ([]backend.Work, error) {
			return h.api.AssignedWorks(ctx, tok, id.SubjectID)
		}),
	}
	var ticket fetch.Ticket
	if id.Email != "" {
		ticket = h.inbox.Begin(id.Email)
		tasks = append(tasks, fetch.Into(&backlog, func(ctx context.Context) ([]backend.Alert, error) {
			return h.api.ListAlerts(ctx, tok)
		}))
	}
	if err := fetch.All(r.Context(), tasks...); err != nil {
		h.fail(w, r, err)
		return
	}

	var alerts []backend.Alert
	if id.Email != "" {
		var err error
		if alerts, err = h.inbox.LoadAt(r.Context(), id.Email, ticket, backlog); err != nil {
			h.logger.Error().Err(err).Str("email", id.Email).Msg("alert inbox load failed")
			alerts = backlog
		}
	}

	q := filter.WorkQueryFrom(r.URL.Query())
	visible := filter.Works(works, q)
	h.render(w, http.StatusOK, view.PageWorkerDashboard, h.page(r, "Mis trabajos", view.WorkerData{
		Works:      visible,
		Query:      q,
		Map:        geo.NewView(visible, !q.Empty()),
		Alerts:     alerts,
		ShowAlerts: len(alerts) > 0,
	}))
}

// SelectWork stores the chosen work item and opens its detail page.
func (h *Handler) SelectWork(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || !httpmiddleware.SelectWork(w, r.PostFormValue("job_id"), h.cfg.CookieSecure) {
		http.Redirect(w, r, "/worker/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/worker/work", http.StatusSeeOther)
}

func (h *Handler) WorkDetail(w http.ResponseWriter, r *http.Request) {
	h.workDetail(w, r, http.StatusOK, "")
}

func (h *Handler) workDetail(w http.ResponseWriter, r *http.Request, status int, notice string) {
	jobID := httpmiddleware.GetWork(r.Context())
	tok := token(r)

	var (
		work    backend.Work
		reports []backend.Report
	)
	err := fetch.All(r.Context(),
		fetch.Into(&work, func(ctx context.Context) (backend.Work, error) { return h.api.WorkerWork(ctx, tok, jobID) }),
		fetch.Into(&reports, func(ctx context.Context) ([]backend.Report, error) { return h.api.ListReports(ctx, tok, jobID) }),
	)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := h.page(r, "Detalle del trabajo", view.WorkDetailData{Work: work, Reports: reports, Statuses: backend.Statuses})
	page.Notice = notice
	h.render(w, status, view.PageWorkDetail, page)
}

func (h *Handler) UpdateWorkStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.workDetail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := strings.TrimSpace(r.PostFormValue("job_status"))
	if err := util.OneOf(status, "estado", backend.Statuses...); err != nil {
		h.workDetail(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	work, err := h.api.WorkerWork(r.Context(), token(r), httpmiddleware.GetWork(r.Context()))
	if err == nil {
		err = h.api.UpdateWorkStatus(r.Context(), token(r), work, status)
	}
	if err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.workDetail(w, r, formStatus(err), backend.Message(err, msgSaveFailed))
		return
	}
	http.Redirect(w, r, "/worker/dashboard", http.StatusSeeOther)
}

func (h *Handler) CreateReportForm(w http.ResponseWriter, r *http.Request) {
	h.renderReportForm(w, r, http.StatusOK, view.ReportFormData{Action: "/worker/createReport"}, "")
}

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	data := view.ReportFormData{Action: "/worker/createReport"}
	in, cleanup, err := parseReportForm(r)
	defer cleanup()
	data.Notes = in.Notes
	if err != nil {
		h.renderReportForm(w, r, http.StatusUnprocessableEntity, data, err.Error())
		return
	}

	jobID := httpmiddleware.GetWork(r.Context())
	if err := h.api.CreateReport(r.Context(), token(r), jobID, identity(r).SubjectID, in); err != nil {
		if h.sessionExpired(w, r, err) {
			return
		}
		h.renderReportForm(w, r, formStatus(err), data, backend.Message(err, "Error al crear reporte"))
		return
	}
	http.Redirect(w, r, "/worker/work", http.StatusSeeOther)
}

func (h *Handler) EditReportForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	report, err := h.api.GetReport(r.Context(), token(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderReportForm(w, r, http.StatusOK, view.ReportFormData{
		Editing:  true,
		Action:   "/worker/editReport/" + id,
		Notes:    report.Notes,
		PhotoURL: report.PhotoURL,
	}, "")
}

func (h *Handler) EditReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	data := view.ReportFormData{Editing: true, Action: "/worker/editReport/" + id}
	in, cleanup, err := parseReportForm(r)
	defer cleanup()
	data.Notes = in.Notes
	if err != nil {
		h.renderReportForm(w, r, http.StatusUnprocessableEntity, data, err.Error())
		return
	}

	if err := h.api.UpdateReport(r.Context(), token(r), id, identity(r).SubjectID, in); err != nil {
		switch {
		case h.sessionExpired(w, r, err):
		case errors.Is(err, backend.ErrForbidden):
			h.workDetail(w, r, http.StatusForbidden, msgNotOwner)
		default:
			h.renderReportForm(w, r, formStatus(err), data, backend.Message(err, msgSaveFailed))
		}
		return
	}
	http.Redirect(w, r, "/worker/work", http.StatusSeeOther)
}

// DeleteReport removes a report. Reports of other workers are refused in place and
// the list stays as it was.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.ValidID(id) {
		h.toRoot(w, r)
		return
	}
	if err := h.api.DeleteReport(r.Context(), token(r), id, identity(r).SubjectID); err != nil {
		switch {
		case h.sessionExpired(w, r, err):
		case errors.Is(err, backend.ErrForbidden):
			h.workDetail(w, r, http.StatusForbidden, msgNotOwner)
		default:
			h.workDetail(w, r, formStatus(err), backend.Message(err, "Error al eliminar reporte"))
		}
		return
	}
	http.Redirect(w, r, "/worker/work", http.StatusSeeOther)
}

func (h *Handler) renderReportForm(w http.ResponseWriter, r *http.Request, status int, data view.ReportFormData, dialog string) {
	title := "Crear reporte"
	if data.Editing {
		title = "Editar reporte"
	}
	page := h.page(r, title, data)
	page.Dialog = dialog
	h.render(w, status, view.PageReportForm, page)
}

// parseReportForm reads the notes and the optional photo. The returned cleanup
// releases the uploaded file and must always be called.
func parseReportForm(r *http.Request) (backend.ReportInput, func(), error) {
	cleanup := func() {}
	if err := r.ParseMultipartForm(maxReportUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return backend.ReportInput{}, cleanup, errors.New("formulario inválido")
	}
	if r.MultipartForm != nil {
		form := r.MultipartForm
		cleanup = func() { _ = form.RemoveAll() }
	}

	in := backend.ReportInput{Notes: strings.TrimSpace(r.FormValue("report_notes"))}
	file, header, err := r.FormFile("imagen")
	switch {
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
		return in, cleanup, nil
	case err != nil:
		return in, cleanup, errors.New("no se pudo leer la imagen")
	}

	prev := cleanup
	cleanup = func() {
		_ = file.Close()
		prev()
	}
	in.Photo = &backend.Photo{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return in, cleanup, nil
}
