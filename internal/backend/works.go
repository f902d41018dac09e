package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Office endpoints.

func (c *Client) ListWorks(ctx context.Context, token string) ([]Work, error) {
	return getData[[]Work](ctx, c, "/office/dashboard", token)
}

func (c *Client) GetWork(ctx context.Context, token, id string) (Work, error) {
	return getData[Work](ctx, c, "/office/dashboard/"+url.PathEscape(id), token)
}

func (c *Client) CreateWork(ctx context.Context, token string, in WorkInput) error {
	return c.send(ctx, http.MethodPost, "/office/createWork", token, in)
}

func (c *Client) UpdateWork(ctx context.Context, token, id string, in WorkInput) error {
	return c.send(ctx, http.MethodPost, "/office/updateWork/"+url.PathEscape(id), token, in)
}

func (c *Client) DeleteWork(ctx context.Context, token, id string) error {
	return c.send(ctx, http.MethodDelete, "/office/deleteWork/"+url.PathEscape(id), token, nil)
}

func (c *Client) Statistics(ctx context.Context, token string) (Statistics, error) {
	return getData[Statistics](ctx, c, "/office/statistics", token)
}

// Worker endpoints.

// AssignedWorks lists the work items assigned to the worker with the given id.
func (c *Client) AssignedWorks(ctx context.Context, token, workerID string) ([]Work, error) {
	return getData[[]Work](ctx, c, "/worker/dashboard/"+url.PathEscape(workerID), token)
}

func (c *Client) WorkerWork(ctx context.Context, token, jobID string) (Work, error) {
	return getData[Work](ctx, c, "/worker/work/"+url.PathEscape(jobID), token)
}

// UpdateWorkStatus sends the full work item back with the new status, as the
// worker endpoint expects.
func (c *Client) UpdateWorkStatus(ctx context.Context, token string, work Work, status string) error {
	work.Status = status
	body := map[string]any{
		"job_id":          work.ID,
		"job_title":       work.Title,
		"job_description": work.Description,
		"job_status":      work.Status,
		"job_address":     work.Address,
		"job_latitude":    float64(work.Latitude),
		"job_longitude":   float64(work.Longitude),
	}
	return c.send(ctx, http.MethodPost, "/worker/updateWork/"+url.PathEscape(work.ID.String()), token, body)
}
