package backend

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Download is a binary response streamed from the API; the caller closes Body.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// WorkReportPDF downloads the PDF summary of a work item's reports.
func (c *Client) WorkReportPDF(ctx context.Context, token, workID string) (*Download, error) {
	return c.download(ctx, "/worker/workReport/"+url.PathEscape(workID), token)
}

// Upload streams a stored report photo.
func (c *Client) Upload(ctx context.Context, name string) (*Download, error) {
	name = path.Base("/" + name)
	return c.download(ctx, "/upload/"+url.PathEscape(name), "")
}

func (c *Client) download(ctx context.Context, p, token string) (*Download, error) {
	req, err := c.newRequest(ctx, http.MethodGet, p, token, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return &Download{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

func (c *Client) ListReports(ctx context.Context, token, jobID string) ([]Report, error) {
	return getData[[]Report](ctx, c, "/worker/reports/"+url.PathEscape(jobID), token)
}

func (c *Client) GetReport(ctx context.Context, token, id string) (Report, error) {
	return getData[Report](ctx, c, "/worker/getReportById/"+url.PathEscape(id), token)
}

func (c *Client) CreateReport(ctx context.Context, token, jobID, workerID string, in ReportInput) error {
	p := "/worker/createReport/" + url.PathEscape(jobID) + "/" + url.PathEscape(workerID)
	return c.sendMultipart(ctx, p, token, in)
}

// UpdateReport is rejected with 403 when workerID does not own the report.
func (c *Client) UpdateReport(ctx context.Context, token, id, workerID string, in ReportInput) error {
	p := "/worker/updateReport/" + url.PathEscape(id) + "/" + url.PathEscape(workerID) + "/"
	return c.sendMultipart(ctx, p, token, in)
}

// DeleteReport is rejected with 403 when workerID does not own the report.
func (c *Client) DeleteReport(ctx context.Context, token, id, workerID string) error {
	p := "/worker/deleteReport/" + url.PathEscape(id) + "/" + url.PathEscape(workerID)
	return c.send(ctx, http.MethodDelete, p, token, nil)
}

func (c *Client) sendMultipart(ctx context.Context, p, token string, in ReportInput) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("report_notes", in.Notes); err != nil {
		return err
	}
	if in.Photo != nil && in.Photo.Body != nil {
		filename := strings.TrimSpace(in.Photo.Filename)
		if filename == "" {
			filename = "imagen"
		}
		part, err := mw.CreateFormFile("imagen", filename)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, in.Photo.Body); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+p, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, nil)
}
