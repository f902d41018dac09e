package session_test

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/airflowfield/dashboard/internal/session"
	"github.com/airflowfield/dashboard/internal/session/sessiontest"
)

func TestDecodeWorkerToken(t *testing.T) {
	token := sessiontest.Token(t, 42, "worker", "")

	id, err := session.Decode(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Role != session.RoleWorker || id.SubjectID != "42" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.LandingPath() != "/worker/dashboard" {
		t.Fatalf("unexpected landing path %q", id.LandingPath())
	}
}

func TestDecodeFallsBackToSubject(t *testing.T) {
	claims := jwt.MapClaims{"sub": "abc", "rol": "Office", "email": "o@b.com"}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))

	id, err := session.Decode(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.SubjectID != "abc" || id.Role != session.RoleOffice || id.Email != "o@b.com" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestDecodeFailures(t *testing.T) {
	unknownRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": 1, "rol": "root"}).SignedString([]byte("k"))
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"rol": "admin"}).SignedString([]byte("k"))

	cases := map[string]string{
		"garbage":      "not-a-token",
		"two segments": "abc.def",
		"unknown role": unknownRole,
		"no subject":   noSubject,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := session.Decode(token)
			if !errors.Is(err, session.ErrDecodeFailed) {
				t.Fatalf("expected ErrDecodeFailed, got %v", err)
			}
		})
	}

	if _, err := session.Decode("  "); !errors.Is(err, session.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential for blank token, got %v", err)
	}
}

func TestDecodeIgnoresExpiry(t *testing.T) {
	claims := jwt.MapClaims{"uid": 7, "rol": "admin", "exp": 1}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))

	if _, err := session.Decode(token); err != nil {
		t.Fatalf("expired credential should still decode, got %v", err)
	}
}
