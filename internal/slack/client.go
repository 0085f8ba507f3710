package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fr4nk3nst1ner/slackquote/internal/auth"
	"github.com/fr4nk3nst1ner/slackquote/internal/metrics"
)

// DefaultBaseURL is the Slack Web API root
const DefaultBaseURL = "https://slack.com/api"

const userAgent = "slackquote/1.0"

// Client represents a Slack API client
type Client struct {
	credentials *auth.Credentials
	httpClient  *http.Client
	baseURL     string
	timeout     time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, proxies)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the client built from the credentials
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout sets the timeout of the client built from the credentials
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithMetrics records every call on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Slack client. The HTTP client it holds is
// reused read-only by every call.
func NewClient(credentials *auth.Credentials, opts ...Option) (*Client, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credentials are required")
	}

	c := &Client{
		credentials: credentials,
		baseURL:     DefaultBaseURL,
		timeout:     auth.DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		httpClient, err := credentials.ConfigureHTTPClient(c.timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
		}
		c.httpClient = httpClient
	}

	return c, nil
}

type envelope interface {
	result() (bool, string)
	warning() string
}

type response struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func (r response) result() (bool, string) { return r.OK, r.Error }

func (r response) warning() string { return r.Warning }

// makeRequest calls a Web API method and decodes the body into out
func (c *Client) makeRequest(ctx context.Context, method string, params url.Values, out envelope) error {
	start := time.Now()
	err := c.doRequest(ctx, method, params, out)
	c.metrics.ObserveRequest(method, resultLabel(err), time.Since(start))
	return err
}

func (c *Client) doRequest(ctx context.Context, method string, params url.Values, out envelope) error {
	req, err := c.createRequest(ctx, method, params)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: method, Err: scrub(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &TransportError{Method: method, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedResponseError{Method: method, Err: err}
	}

	if warning := out.warning(); warning != "" {
		c.logger.Debug("slack_api_warning", "method", method, "warning", warning)
	}

	if ok, code := out.result(); !ok {
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code}
	}

	return nil
}

// createRequest builds a GET request carrying the token as a query parameter
func (c *Client) createRequest(ctx context.Context, method string, params url.Values) (*http.Request, error) {
	query := url.Values{}
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}
	query.Set("token", c.credentials.Token)

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, method, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", method, scrub(err))
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	return req, nil
}
