// Package view renders the dashboard pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/airflowfield/dashboard/internal/geo"
	"github.com/airflowfield/dashboard/internal/session"
)

//go:embed templates/*.html
var files embed.FS

// Page names.
const (
	PageLogin           = "login.html"
	PageError           = "error.html"
	PageAdminDashboard  = "admin_dashboard.html"
	PageUserForm        = "user_form.html"
	PageOfficeDashboard = "office_dashboard.html"
	PageWorkForm        = "work_form.html"
	PageWorkerDashboard = "worker_dashboard.html"
	PageWorkDetail      = "work_detail.html"
	PageReportForm      = "report_form.html"
)

var pages = []string{
	PageLogin, PageError, PageAdminDashboard, PageUserForm, PageOfficeDashboard,
	PageWorkForm, PageWorkerDashboard, PageWorkDetail, PageReportForm,
}

// Page is the data every template receives.
type Page struct {
	Title    string
	Identity session.Identity
	LoggedIn bool
	// Notice is an in-page message that leaves the rest of the page usable.
	Notice string
	// Dialog is a blocking message shown over a form that keeps its values.
	Dialog string
	Data   any
}

// Renderer holds the parsed templates.
type Renderer struct {
	pages map[string]*template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"year":        func() int { return time.Now().Year() },
		"statusColor": geo.StatusColor,
		"mapJSON": func(v geo.View) (template.JS, error) {
			raw, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(raw), nil
		},
		"eq2": func(a, b string) bool { return a == b },
	}
}

// New parses the layout with every page.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs()).ParseFS(files, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the page into a buffer first so a template error never produces a
// half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %s", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("view: render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
