package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	return getData[[]User](ctx, c, "/admin/dashboard", token)
}

func (c *Client) GetUser(ctx context.Context, token, id string) (User, error) {
	return getData[User](ctx, c, "/admin/dashboard/"+url.PathEscape(id), token)
}

func (c *Client) CreateUser(ctx context.Context, token string, in UserInput) error {
	return c.send(ctx, http.MethodPost, "/admin/createUser", token, in)
}

// UpdateUser sends blank fields as null so the API leaves them untouched.
func (c *Client) UpdateUser(ctx context.Context, token, id string, in UserInput) error {
	return c.send(ctx, http.MethodPost, "/admin/updateUser/"+url.PathEscape(id), token, in.updateBody())
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.send(ctx, http.MethodDelete, "/admin/deleteUser/"+url.PathEscape(id), token, nil)
}
