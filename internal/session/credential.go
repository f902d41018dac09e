package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoCredential means the request carries no usable credential.
	ErrNoCredential = errors.New("session: credential required")
	// ErrDecodeFailed means the credential could not be decoded into an identity.
	ErrDecodeFailed = errors.New("session: credential could not be decoded")
)

// Claims mirrors the payload issued by the remote auth endpoint.
type Claims struct {
	UID   any    `json:"uid"`
	Role  string `json:"rol"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what the dashboard knows about the caller.
type Identity struct {
	SubjectID string
	Role      Role
	Email     string
}

// LandingPath returns the dashboard for the identity's role.
func (i Identity) LandingPath() string {
	return i.Role.LandingPath()
}

// Is reports whether the identity refers to the given user id.
func (i Identity) Is(userID string) bool {
	return i.SubjectID != "" && strings.TrimSpace(userID) == i.SubjectID
}

var parser = jwt.NewParser()

// Decode reads the credential payload without verifying its signature. The result
// drives routing and display only; the remote API enforces authorization itself.
func Decode(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrNoCredential
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrDecodeFailed, claims.Role)
	}

	subject := subjectString(claims.UID)
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrDecodeFailed)
	}

	return Identity{SubjectID: subject, Role: role, Email: strings.TrimSpace(claims.Email)}, nil
}

func subjectString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
