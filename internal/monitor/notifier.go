package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers operator notifications to an external channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

type Message struct {
	Title    string
	Text     string
	Severity string
}

const (
	SeverityInfo     = "info"
	SeverityCritical = "critical"
)

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier returns nil when no webhook is configured.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, msg Message) error {
	if s == nil || s.webhookURL == "" {
		return errors.New("slack notifier not configured")
	}

	body, err := json.Marshal(map[string]any{"text": formatSlackMessage(msg)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack notification failed: status %d", resp.StatusCode)
	}
	return nil
}

func formatSlackMessage(msg Message) string {
	emoji := ":information_source:"
	if msg.Severity == SeverityCritical {
		emoji = ":rotating_light:"
	}
	if msg.Title != "" {
		return emoji + " *" + msg.Title + "*\n" + msg.Text
	}
	return emoji + " " + msg.Text
}
