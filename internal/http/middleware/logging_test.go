package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airflowfield/dashboard/internal/session"
	"github.com/airflowfield/dashboard/internal/session/sessiontest"
)

type panickingRevoker struct{}

func (panickingRevoker) Revoke(context.Context, string, time.Duration) error { return nil }
func (panickingRevoker) IsRevoked(context.Context, string) (bool, error) {
	panic("revocation store unavailable")
}

func loggedRouter(buf *bytes.Buffer, revoker session.Revoker) http.Handler {
	logger := zerolog.New(buf)
	r := chi.NewRouter()
	r.Use(Logging(logger))
	r.Use(Recover(logger))
	r.Use(Session(session.NewHolder(session.HolderOptions{Revoker: revoker})))
	r.Get("/worker/dashboard", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func TestLoggingRecordsSessionSubject(t *testing.T) {
	var buf bytes.Buffer
	router := loggedRouter(&buf, session.NoopRevoker{})

	req := httptest.NewRequest(http.MethodGet, "/worker/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieToken, Value: sessiontest.Token(t, 7, "worker", "w@b.com")})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	line := buf.String()
	if !strings.Contains(line, `"subject":"7"`) || !strings.Contains(line, `"role":"worker"`) {
		t.Fatalf("request line lacks the caller: %s", line)
	}
}

func TestRecoverCoversSessionRead(t *testing.T) {
	var buf bytes.Buffer
	router := loggedRouter(&buf, panickingRevoker{})

	req := httptest.NewRequest(http.MethodGet, "/worker/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieToken, Value: sessiontest.Token(t, 7, "worker", "")})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"message":"panic recovered"`) {
		t.Fatalf("panic not logged: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"status":500`) {
		t.Fatalf("request line missing: %s", buf.String())
	}
}
