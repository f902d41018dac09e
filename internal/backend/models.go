package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ID accepts identifiers encoded as JSON numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Coordinate accepts decimal degrees encoded as JSON numbers or numeric strings.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*c = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	*c = Coordinate(v)
	return nil
}

// Flag accepts booleans encoded as true/false, 0/1 or their string forms.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("flag: unexpected value %s", s)
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp parses the creation dates the API emits; unknown formats decode as zero.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// DisplayLayout is the dd/mm/yyyy, hh:mm:ss form shown in tables and matched by filters.
const DisplayLayout = "02/01/2006, 15:04:05"

// Display formats the timestamp for tables; zero values render empty.
func (t Timestamp) Display() string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(DisplayLayout)
}

// Work statuses.
const (
	StatusPending    = "pendiente"
	StatusInProgress = "en curso"
	StatusCompleted  = "completado"
)

// Statuses lists the values accepted for a work item, in workflow order.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}

type User struct {
	ID        ID        `json:"user_id"`
	Name      string    `json:"user_name"`
	Email     string    `json:"user_email"`
	RoleName  string    `json:"role_name"`
	Active    Flag      `json:"is_active"`
	CreatedAt Timestamp `json:"user_created_at"`
}

// UserInput is the body of create and update calls. Empty fields are sent as null on
// update so the API keeps the stored value.
type UserInput struct {
	Name     string `json:"user_name"`
	Email    string `json:"user_email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in UserInput) updateBody() map[string]any {
	return map[string]any{
		"user_name":  nullable(in.Name),
		"user_email": nullable(in.Email),
		"password":   nullable(in.Password),
		"role":       nullable(in.Role),
	}
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

type Work struct {
	ID          ID         `json:"job_id"`
	UUID        string     `json:"job_uuid"`
	Title       string     `json:"job_title"`
	Description string     `json:"job_description"`
	Status      string     `json:"job_status"`
	Address     string     `json:"job_address"`
	Latitude    Coordinate `json:"job_latitude"`
	Longitude   Coordinate `json:"job_longitude"`
	WorkerEmail string     `json:"assigned_worker_user_email"`
	WorkerName  string     `json:"worker_name"`
	WorkerMail  string     `json:"worker_email"`
	CreatedAt   Timestamp  `json:"job_created_at"`
}

// AssigneeEmail returns whichever worker email field the endpoint filled in.
func (w Work) AssigneeEmail() string {
	if w.WorkerEmail != "" {
		return w.WorkerEmail
	}
	return w.WorkerMail
}

type WorkInput struct {
	Title       string  `json:"job_title"`
	Description string  `json:"job_description"`
	Status      string  `json:"job_status"`
	Address     string  `json:"job_address"`
	Latitude    float64 `json:"job_latitude"`
	Longitude   float64 `json:"job_longitude"`
	WorkerEmail string  `json:"user_email"`
}

type Report struct {
	ID        ID        `json:"report_id"`
	WorkID    ID        `json:"job_id"`
	WorkerID  ID        `json:"worker_user_id"`
	Notes     string    `json:"report_notes"`
	PhotoURL  string    `json:"report_photo_url"`
	CreatedAt Timestamp `json:"report_created_at"`
}

// Photo is an opaque image attached to a report.
type Photo struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type ReportInput struct {
	Notes string
	Photo *Photo
}

type Alert struct {
	ID        ID        `json:"alert_id"`
	Title     string    `json:"alert_title"`
	Message   string    `json:"alert_message"`
	Receiver  string    `json:"receiver_email,omitempty"`
	CreatedAt Timestamp `json:"alert_created_at"`
}

type AlertInput struct {
	ReceiverEmail string `json:"receiver_email"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	Type          string `json:"type"`
}

type Statistics struct {
	Total      int `json:"total_works"`
	Pending    int `json:"works_pending"`
	InProgress int `json:"works_in_progress"`
	Completed  int `json:"works_completed"`
}
