// Package sessiontest builds credentials shaped like the remote auth endpoint's.
package sessiontest

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// Token signs a credential with a throwaway key; the dashboard never verifies it.
func Token(t testing.TB, uid int, role, email string) string {
	t.Helper()
	claims := jwt.MapClaims{"uid": uid, "rol": role}
	if email != "" {
		claims["email"] = email
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-only-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
