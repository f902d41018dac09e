package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Config{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without base url")
	}
}

func TestLoginReturnsToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "w@b.com" || body["password"] != "secret" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))

	token, err := client.Login(context.Background(), "w@b.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "abc" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestNon2xxBecomesRequestFailed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"msg":"No autorizado"}`))
	}))

	err := client.DeleteReport(context.Background(), "tok", "3", "9")
	var rf *RequestFailed
	if !errors.As(err, &rf) {
		t.Fatalf("expected RequestFailed, got %v", err)
	}
	if rf.Status != http.StatusForbidden || rf.Message != "No autorizado" {
		t.Fatalf("unexpected failure %+v", rf)
	}
	if !errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound) {
		t.Fatal("status sentinel mismatch")
	}
	if Message(err, "fallback") != "No autorizado" {
		t.Fatal("server message should be surfaced")
	}
}

func TestPlainTextErrorBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.ListUsers(context.Background(), "tok")
	var rf *RequestFailed
	if !errors.As(err, &rf) || rf.Message != "boom" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestListWorksDecodesFlexibleFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization %q", got)
		}
		_, _ = w.Write([]byte(`{"data":[
			{"job_id":1,"job_title":"Poda","job_status":"pendiente","job_latitude":"40.4","job_longitude":-3.7,"assigned_worker_user_email":"w@b.com","job_created_at":"2025-03-04T10:20:30.000Z"},
			{"job_id":"2","job_title":"Riego","job_status":"en curso","job_latitude":null,"job_longitude":"","worker_email":"x@b.com","job_created_at":"garbage"}
		]}`))
	}))

	works, err := client.ListWorks(context.Background(), "tok")
	if err != nil {
		t.Fatalf("list works: %v", err)
	}
	if len(works) != 2 {
		t.Fatalf("expected 2 works, got %d", len(works))
	}
	if works[0].ID != "1" || float64(works[0].Latitude) != 40.4 || float64(works[0].Longitude) != -3.7 {
		t.Fatalf("unexpected first work %+v", works[0])
	}
	if works[0].CreatedAt.IsZero() {
		t.Fatal("timestamp should parse")
	}
	if works[1].ID != "2" || works[1].Latitude != 0 || !works[1].CreatedAt.IsZero() {
		t.Fatalf("unexpected second work %+v", works[1])
	}
	if works[0].AssigneeEmail() != "w@b.com" || works[1].AssigneeEmail() != "x@b.com" {
		t.Fatal("assignee email fallback mismatch")
	}
}

func TestUpdateUserSendsNullForBlankFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/updateUser/7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != nil || body["user_name"] != "Ana" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))

	if err := client.UpdateUser(context.Background(), "tok", "7", UserInput{Name: "Ana"}); err != nil {
		t.Fatalf("update user: %v", err)
	}
}

func TestCreateReportSendsMultipart(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/worker/createReport/4/9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("report_notes") != "hecho" {
			t.Errorf("unexpected notes %q", r.FormValue("report_notes"))
		}
		file, header, err := r.FormFile("imagen")
		if err != nil {
			t.Errorf("missing image: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "foto.jpg" || string(data) != "jpeg-bytes" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	in := ReportInput{Notes: "hecho", Photo: &Photo{Filename: "foto.jpg", Body: strings.NewReader("jpeg-bytes")}}
	if err := client.CreateReport(context.Background(), "tok", "4", "9", in); err != nil {
		t.Fatalf("create report: %v", err)
	}
}

func TestWorkReportPDFStreams(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))

	dl, err := client.WorkReportPDF(context.Background(), "tok", "12")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer dl.Body.Close()
	data, _ := io.ReadAll(dl.Body)
	if dl.ContentType != "application/pdf" || string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected download %q %q", dl.ContentType, data)
	}
}

func TestAlertsEndpoints(t *testing.T) {
	var sent AlertInput
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/alerts/get":
			_, _ = w.Write([]byte(`{"alerts":[{"alert_id":5,"alert_title":"Hola","alert_message":"m"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/alerts/send":
			_ = json.NewDecoder(r.Body).Decode(&sent)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodDelete && r.URL.Path == "/alerts/5":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	list, err := client.ListAlerts(ctx, "tok")
	if err != nil || len(list) != 1 || list[0].ID != "5" {
		t.Fatalf("unexpected alerts %v %v", list, err)
	}
	if err := client.SendAlert(ctx, "tok", AlertInput{ReceiverEmail: "w@b.com", Title: "t", Message: "m"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Type != "info" || sent.ReceiverEmail != "w@b.com" {
		t.Fatalf("unexpected sent alert %+v", sent)
	}
	if err := client.DeleteAlert(ctx, "tok", "5"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.DeleteAlert(ctx, "tok", "6"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
