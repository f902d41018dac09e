package session_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/airflowfield/dashboard/internal/session"
	"github.com/airflowfield/dashboard/internal/session/sessiontest"
)

func newRedisRevoker(t *testing.T) *session.RedisRevoker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisRevoker(client)
}

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestHolderLoginThenRead(t *testing.T) {
	holder := session.NewHolder(session.HolderOptions{})
	token := sessiontest.Token(t, 5, "worker", "")

	rec := httptest.NewRecorder()
	id, err := holder.Login(rec, token, "w@b.com")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Email != "w@b.com" {
		t.Fatalf("expected email from form, got %q", id.Email)
	}

	got, raw, err := holder.Read(requestWithCookies(rec.Result().Cookies()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if raw != token || got.SubjectID != "5" || got.Email != "w@b.com" {
		t.Fatalf("unexpected read result %+v %q", got, raw)
	}
}

func TestHolderLoginRejectsUndecodable(t *testing.T) {
	holder := session.NewHolder(session.HolderOptions{})
	rec := httptest.NewRecorder()

	if _, err := holder.Login(rec, "broken", "x@y.z"); !errors.Is(err, session.ErrDecodeFailed) {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookie should be written for an undecodable credential")
	}
}

func TestHolderReadWithoutCookie(t *testing.T) {
	holder := session.NewHolder(session.HolderOptions{})
	if _, _, err := holder.Read(httptest.NewRequest(http.MethodGet, "/", nil)); !errors.Is(err, session.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestHolderLogoutRevokes(t *testing.T) {
	holder := session.NewHolder(session.HolderOptions{Revoker: newRedisRevoker(t)})
	token := sessiontest.Token(t, 1, "admin", "a@b.com")
	cookie := &http.Cookie{Name: session.CookieToken, Value: token}

	rec := httptest.NewRecorder()
	if err := holder.Logout(rec, requestWithCookies([]*http.Cookie{cookie})); err != nil {
		t.Fatalf("logout: %v", err)
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieToken && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("token cookie should be expired")
	}

	// A browser that kept the old cookie is treated as logged out.
	if _, _, err := holder.Read(requestWithCookies([]*http.Cookie{cookie})); !errors.Is(err, session.ErrNoCredential) {
		t.Fatalf("revoked credential should read as absent, got %v", err)
	}
}
