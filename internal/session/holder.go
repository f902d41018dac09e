package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// CookieToken holds the bearer credential.
	CookieToken = "token"
	// CookieEmail holds the login email, used as the live feed identity when the
	// credential has no email claim.
	CookieEmail = "user_email"
)

// HolderOptions configures the session cookies.
type HolderOptions struct {
	TTL     time.Duration
	Secure  bool
	Revoker Revoker
	Logger  zerolog.Logger
}

// Holder is the only writer of the session cookies.
type Holder struct {
	ttl     time.Duration
	secure  bool
	revoker Revoker
	logger  zerolog.Logger
}

func NewHolder(opts HolderOptions) *Holder {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Revoker == nil {
		opts.Revoker = NoopRevoker{}
	}
	return &Holder{ttl: opts.TTL, secure: opts.Secure, revoker: opts.Revoker, logger: opts.Logger}
}

// Read returns the caller identity and raw credential.
func (h *Holder) Read(r *http.Request) (Identity, string, error) {
	cookie, err := r.Cookie(CookieToken)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return Identity{}, "", ErrNoCredential
	}
	token := strings.TrimSpace(cookie.Value)

	revoked, err := h.revoker.IsRevoked(r.Context(), token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("session: revocation lookup failed")
	}
	if revoked {
		return Identity{}, "", ErrNoCredential
	}

	id, err := Decode(token)
	if err != nil {
		return Identity{}, "", err
	}
	if id.Email == "" {
		if c, err := r.Cookie(CookieEmail); err == nil {
			id.Email = strings.TrimSpace(c.Value)
		}
	}
	return id, token, nil
}

// Login stores a freshly issued credential. Nothing is written if it cannot be decoded.
func (h *Holder) Login(w http.ResponseWriter, token, email string) (Identity, error) {
	id, err := Decode(token)
	if err != nil {
		return Identity{}, err
	}
	if id.Email == "" {
		id.Email = strings.TrimSpace(email)
	}

	http.SetCookie(w, h.cookie(CookieToken, token, int(h.ttl.Seconds())))
	if id.Email != "" {
		http.SetCookie(w, h.cookie(CookieEmail, id.Email, int(h.ttl.Seconds())))
	}
	return id, nil
}

// Logout revokes the current credential and clears the cookies.
func (h *Holder) Logout(w http.ResponseWriter, r *http.Request) error {
	return h.destroy(r.Context(), w, r)
}

// Invalidate ends the session after the user edited their own account; the old
// credential no longer reflects the stored user.
func (h *Holder) Invalidate(w http.ResponseWriter, r *http.Request) error {
	return h.destroy(r.Context(), w, r)
}

func (h *Holder) destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if cookie, cErr := r.Cookie(CookieToken); cErr == nil && cookie.Value != "" {
		err = h.revoker.Revoke(ctx, cookie.Value, h.ttl)
	}
	http.SetCookie(w, h.cookie(CookieToken, "", -1))
	http.SetCookie(w, h.cookie(CookieEmail, "", -1))
	return err
}

func (h *Holder) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
