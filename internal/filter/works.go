package filter

import (
	"net/url"

	"github.com/airflowfield/dashboard/internal/backend"
)

// WorkQuery holds the filter inputs of the work tables.
type WorkQuery struct {
	Title  string
	Email  string
	Date   string
	Status string
}

// WorkQueryFrom reads the filter inputs from a query string.
func WorkQueryFrom(v url.Values) WorkQuery {
	return WorkQuery{
		Title:  v.Get("title"),
		Email:  v.Get("email"),
		Date:   v.Get("date"),
		Status: v.Get("status"),
	}
}

// Empty reports whether no filter is active.
func (q WorkQuery) Empty() bool {
	return q.Title == "" && q.Email == "" && q.Date == "" && q.Status == ""
}

// Works filters work items by title, assigned email, display date and status.
func Works(works []backend.Work, q WorkQuery) []backend.Work {
	return Apply(works,
		Field[backend.Work]{Query: q.Title, Value: func(w backend.Work) string { return w.Title }},
		Field[backend.Work]{Query: q.Email, Value: func(w backend.Work) string { return w.AssigneeEmail() }},
		Field[backend.Work]{Query: q.Date, Value: func(w backend.Work) string { return w.CreatedAt.Display() }},
		Field[backend.Work]{Query: q.Status, Value: func(w backend.Work) string { return w.Status }},
	)
}
