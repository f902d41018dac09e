package backend

import (
	"context"
	"errors"
	"net/http"
)

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	req, err := c.newRequest(ctx, http.MethodPost, "/login", "", body)
	if err != nil {
		return "", err
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("backend: login response without token")
	}
	return resp.Token, nil
}
