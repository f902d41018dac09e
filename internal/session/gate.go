package session

import "errors"

// GateState is the outcome of evaluating a role-gated subtree.
type GateState int

const (
	GateUnauthenticated GateState = iota
	GateUnauthorized
	GateAuthorized
)

func (s GateState) String() string {
	switch s {
	case GateAuthorized:
		return "authorized"
	case GateUnauthorized:
		return "authenticated-unauthorized"
	default:
		return "unauthenticated"
	}
}

// Gate decides access for an identity read from the request. Any read error,
// including an undecodable credential, fails closed as unauthenticated.
func Gate(id Identity, readErr error, allowed ...Role) GateState {
	if readErr != nil || id.Role == "" {
		return GateUnauthenticated
	}
	for _, role := range allowed {
		if role == id.Role {
			return GateAuthorized
		}
	}
	return GateUnauthorized
}

// IsAuthError reports whether err should send the caller back to the login page.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoCredential) || errors.Is(err, ErrDecodeFailed)
}
