package view

import (
	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/filter"
	"github.com/airflowfield/dashboard/internal/geo"
)

type LoginData struct {
	Email string
}

type UsersData struct {
	Users []backend.User
}

type UserFormData struct {
	Editing bool
	Action  string
	Form    backend.UserInput
	Roles   []string
}

type OfficeData struct {
	Stats     backend.Statistics
	Works     []backend.Work
	Query     filter.WorkQuery
	Map       geo.View
	AlertForm backend.AlertInput
}

// WorkForm keeps the raw form values so a failed submit re-renders what was typed.
type WorkForm struct {
	Title       string
	Description string
	Status      string
	Address     string
	Latitude    string
	Longitude   string
	WorkerEmail string
}

type WorkFormData struct {
	Editing  bool
	Action   string
	Form     WorkForm
	Statuses []string
}

type WorkerData struct {
	Works      []backend.Work
	Query      filter.WorkQuery
	Map        geo.View
	Alerts     []backend.Alert
	ShowAlerts bool
}

type WorkDetailData struct {
	Work     backend.Work
	Reports  []backend.Report
	Statuses []string
}

type ReportFormData struct {
	Editing  bool
	Action   string
	Notes    string
	PhotoURL string
}
