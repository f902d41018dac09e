package session

import "strings"

// Role is the access tier carried by the credential's `rol` claim.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOffice Role = "office"
	RoleWorker Role = "worker"
)

// ParseRole normalizes a raw claim value; unknown values are rejected.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleOffice:
		return RoleOffice, true
	case RoleWorker:
		return RoleWorker, true
	}
	return "", false
}

// LandingPath is where a freshly logged-in user of this role is sent.
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleOffice:
		return "/office/dashboard"
	default:
		return "/worker/dashboard"
	}
}

func (r Role) String() string { return string(r) }
