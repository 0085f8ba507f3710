// Package slackquote posts a random pinned message from a Slack workspace
// as the quote of the week.
package slackquote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fr4nk3nst1ner/slackquote/internal/auth"
	"github.com/fr4nk3nst1ner/slackquote/internal/metrics"
	"github.com/fr4nk3nst1ner/slackquote/internal/quote"
	"github.com/fr4nk3nst1ner/slackquote/internal/slack"
)

// ErrRunInProgress is returned by TryRun while another run holds the job
var ErrRunInProgress = quote.ErrRunInProgress

// FallbackAuthor is the name used when the author cannot be resolved
const FallbackAuthor = quote.FallbackAuthor

// Options configures a Runner. Token and WebhookURL are required.
type Options struct {
	Token      string
	WebhookURL string
	ProxyURL   string
	BaseURL    string
	Timeout    time.Duration

	// DryRun, when set, receives the message instead of the webhook
	DryRun io.Writer
	Logger *slog.Logger
}

// Result is the outcome of one run
type Result struct {
	RunID         string
	Outcome       string
	Channel       string
	Author        string
	Text          string
	WebhookStatus int
	PostedAt      time.Time
}

// Runner owns the Slack client and the quote job
type Runner struct {
	creds   *auth.Credentials
	client  *slack.Client
	job     *quote.Job
	metrics *metrics.Metrics
}

// New validates credentials and builds a Runner
func New(opts Options) (*Runner, error) {
	creds, err := auth.NewCredentials(opts.Token, opts.WebhookURL, opts.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	m := metrics.New()
	clientOpts := []slack.Option{slack.WithMetrics(m)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, slack.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, slack.WithTimeout(opts.Timeout))
	}
	if opts.Logger != nil {
		clientOpts = append(clientOpts, slack.WithLogger(opts.Logger))
	}
	client, err := slack.NewClient(creds, clientOpts...)
	if err != nil {
		return nil, err
	}

	jobOpts := []quote.Option{quote.WithMetrics(m), quote.WithLogger(opts.Logger)}
	if opts.DryRun != nil {
		jobOpts = append(jobOpts, quote.WithDryRun(opts.DryRun))
	}

	return &Runner{
		creds:   creds,
		client:  client,
		job:     quote.New(client, client, jobOpts...),
		metrics: m,
	}, nil
}

// Run performs one invocation, waiting for any run in progress
func (r *Runner) Run(ctx context.Context) (Result, error) {
	res, err := r.job.Run(ctx)
	return toResult(res), err
}

// TryRun is Run without waiting; it returns ErrRunInProgress instead
func (r *Runner) TryRun(ctx context.Context) (Result, error) {
	res, err := r.job.TryRun(ctx)
	return toResult(res), err
}

// Check verifies the token with auth.test and returns "user@team"
func (r *Runner) Check(ctx context.Context) (string, error) {
	id, err := r.client.TestCredentials(ctx)
	if err != nil {
		return "", err
	}
	return id.User + "@" + id.Team, nil
}

// TokenKind is "bot" for xoxb- tokens and "user" otherwise
func (r *Runner) TokenKind() string {
	if r.creds.IsBotToken() {
		return "bot"
	}
	return "user"
}

// Job exposes the underlying job for the scheduler and ops server
func (r *Runner) Job() *quote.Job { return r.job }

// Metrics returns the collectors shared by the client and the job
func (r *Runner) Metrics() *metrics.Metrics { return r.metrics }

// MetricsHandler serves the Prometheus text format
func (r *Runner) MetricsHandler() http.Handler { return r.metrics.Handler() }

func toResult(res quote.Result) Result {
	return Result{
		RunID:         res.RunID,
		Outcome:       string(res.Outcome),
		Channel:       res.Channel.Name,
		Author:        res.Author,
		Text:          res.Text,
		WebhookStatus: res.WebhookStatus,
		PostedAt:      res.PostedAt,
	}
}
