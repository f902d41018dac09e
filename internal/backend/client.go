// Package backend is the client of the remote field operations REST API. Every call
// carries the caller's bearer credential and the request context.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxErrorBody = 64 << 10

// Client performs the REST calls of the dashboards.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

// Config describes how to reach the API.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// New builds a client for the given API origin.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend: base url required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		logger:     cfg.Logger.With().Str("component", "backend").Logger(),
	}, nil
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping checks that the API origin answers at all; any HTTP status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: ping: %w", err)
	}
	resp.Body.Close()
	return nil
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

func getData[T any](ctx context.Context, c *Client, path, token string) (T, error) {
	var env dataEnvelope[T]
	req, err := c.newRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return env.Data, err
	}
	if err := c.do(req, &env); err != nil {
		return env.Data, err
	}
	return env.Data, nil
}

func (c *Client) send(ctx context.Context, method, path, token string, body any) error {
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("backend: decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// roundTrip returns the response only for 2xx statuses; the caller closes the body.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &RequestFailed{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	return resp, nil
}

func readErrorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, candidate := range []string{payload.Msg, payload.Message, payload.Error} {
			if strings.TrimSpace(candidate) != "" {
				return strings.TrimSpace(candidate)
			}
		}
		return ""
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
