package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every request made with the configured client
const DefaultTimeout = 30 * time.Second

// Credentials holds the secrets needed to read from Slack and post the quote
type Credentials struct {
	Token      string
	WebhookURL string
	ProxyURL   string
}

// NewCredentials creates a new Credentials instance
func NewCredentials(token, webhookURL, proxyURL string) (*Credentials, error) {
	token = strings.TrimSpace(token)
	webhookURL = strings.TrimSpace(webhookURL)

	if token == "" {
		return nil, fmt.Errorf("slack api token must be provided")
	}
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook url must be provided")
	}

	normalized, err := normalizeWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		Token:      token,
		WebhookURL: normalized,
		ProxyURL:   strings.TrimSpace(proxyURL),
	}, nil
}

// IsBotToken reports whether the token is a bot token (xoxb-)
func (c *Credentials) IsBotToken() bool {
	return strings.HasPrefix(c.Token, "xoxb-")
}

// ConfigureHTTPClient builds the single http.Client shared by every call
func (c *Credentials) ConfigureHTTPClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	if c.ProxyURL != "" {
		proxyURLParsed, err := url.Parse(c.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURLParsed)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// normalizeWebhookURL ensures the webhook URL has a scheme and a host
func normalizeWebhookURL(webhookURL string) (string, error) {
	if !strings.HasPrefix(webhookURL, "https://") && !strings.HasPrefix(webhookURL, "http://") {
		webhookURL = "https://" + webhookURL
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid webhook url: missing host")
	}
	return u.String(), nil
}
