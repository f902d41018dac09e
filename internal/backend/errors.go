package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by responses with status 401.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrForbidden is matched by responses with status 403, including ownership violations.
	ErrForbidden = errors.New("backend: forbidden")
	// ErrNotFound is matched by responses with status 404.
	ErrNotFound = errors.New("backend: not found")
)

// RequestFailed is returned for every non-2xx response.
type RequestFailed struct {
	Status  int
	Message string
}

func (e *RequestFailed) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Is lets callers use errors.Is with the status sentinels.
func (e *RequestFailed) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Message returns the server message of a failed request, or the fallback.
func Message(err error, fallback string) string {
	var rf *RequestFailed
	if errors.As(err, &rf) && rf.Message != "" {
		return rf.Message
	}
	return fallback
}
