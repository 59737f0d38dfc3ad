// Package notify delivers submission lifecycle notifications to an external
// webhook (e.g. a chat integration or mailer bridge).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Notification is the webhook payload.
type Notification struct {
	Event        string `json:"event"` // submitted | graded
	AssignmentID string `json:"assignment_id"`
	SubmissionID string `json:"submission_id"`
	StudentID    string `json:"student_id"`
	Grade        string `json:"grade,omitempty"`
}

// Client posts notifications to a configured webhook URL.
type Client struct {
	URL  string
	Skip bool
	HTTP *http.Client
}

// New creates a client. With skip set, Send becomes a no-op; useful in dev
// when no webhook is configured.
func New(url string, skip bool) *Client {
	return &Client{
		URL:  url,
		Skip: skip || url == "",
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one notification as JSON.
func (c *Client) Send(ctx context.Context, n Notification) error {
	if c.Skip {
		return nil
	}
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: webhook returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
