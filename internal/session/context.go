package session

import "context"

type contextKey string

const stateKey contextKey = "session"

// State is the session as read once per request by middleware.
type State struct {
	Identity Identity
	Token    string
	Err      error
}

// WithState injects the request's session state.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// StateFrom returns the session state; requests that skipped the middleware read as
// having no credential.
func StateFrom(ctx context.Context) State {
	st, ok := ctx.Value(stateKey).(State)
	if !ok {
		return State{Err: ErrNoCredential}
	}
	return st
}

// FromContext returns the caller identity when the credential was read successfully.
func FromContext(ctx context.Context) (Identity, bool) {
	st := StateFrom(ctx)
	if st.Err != nil {
		return Identity{}, false
	}
	return st.Identity, true
}

// TokenFrom returns the raw bearer credential of the request.
func TokenFrom(ctx context.Context) string {
	st := StateFrom(ctx)
	if st.Err != nil {
		return ""
	}
	return st.Token
}
