package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Identity is what auth.test reports about the token
type Identity struct {
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

type authTestResponse struct {
	response
	Identity
}

// TestCredentials tests if the provided token is valid
func (c *Client) TestCredentials(ctx context.Context) (*Identity, error) {
	var result authTestResponse
	if err := c.makeRequest(ctx, "auth.test", nil, &result); err != nil {
		return nil, fmt.Errorf("credential test failed: %w", err)
	}
	return &result.Identity, nil
}

// WebhookPayload is the body posted to the incoming webhook. The webhook's
// own destination is used, so no channel or username is sent.
type WebhookPayload struct {
	Text string `json:"text"`
}

// PostWebhook posts text to the configured webhook. The status code is
// returned for the caller to log; only transport failures are errors.
func (c *Client) PostWebhook(ctx context.Context, text string) (int, error) {
	body, err := json.Marshal(WebhookPayload{Text: text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.credentials.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create webhook request: %w", scrub(err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveWebhook(0)
		return 0, &TransportError{Method: "webhook", Err: scrub(err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	c.metrics.ObserveWebhook(resp.StatusCode)
	return resp.StatusCode, nil
}
