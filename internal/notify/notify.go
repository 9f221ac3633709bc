// Package notify delivers the morning report to a chat channel over an
// incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joescharf/nightfix/internal/models"
)

// Notifier delivers review reports to one channel.
type Notifier interface {
	// SendReport posts the report. It is an error to call this when
	// Configured is false.
	SendReport(ctx context.Context, report *models.ReviewReport) error
	// Configured reports whether the notifier has a destination.
	Configured() bool
	// ChannelName identifies the channel for logging.
	ChannelName() string
}

// New returns the Notifier for a configured channel name.
func New(channel, webhookURL string) (Notifier, error) {
	switch strings.ToLower(channel) {
	case "discord":
		return &DiscordNotifier{webhookURL: webhookURL, client: defaultClient()}, nil
	case "teams":
		return &TeamsNotifier{webhookURL: webhookURL, client: defaultClient()}, nil
	default:
		return nil, fmt.Errorf("unknown notification channel %q", channel)
	}
}

func defaultClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON sends a JSON payload to a webhook and checks for a 2xx response.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
