package backend

import (
	"context"
	"net/http"
	"net/url"
)

// ListAlerts returns the backlog of alerts addressed to the caller.
func (c *Client) ListAlerts(ctx context.Context, token string) ([]Alert, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/alerts/get", token, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Alerts []Alert `json:"alerts"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// SendAlert pushes an alert to a worker; the type defaults to "info".
func (c *Client) SendAlert(ctx context.Context, token string, in AlertInput) error {
	if in.Type == "" {
		in.Type = "info"
	}
	return c.send(ctx, http.MethodPost, "/alerts/send", token, in)
}

func (c *Client) DeleteAlert(ctx context.Context, token, id string) error {
	return c.send(ctx, http.MethodDelete, "/alerts/"+url.PathEscape(id), token, nil)
}
