package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fr4nk3nst1ner/slackquote/internal/metrics"
	"github.com/fr4nk3nst1ner/slackquote/internal/models"
	"github.com/fr4nk3nst1ner/slackquote/utils"
)

var excludedChannels = []string{"thracia", "playground", "programming", "gm-talk", "civ", "hotsow"}

// ExcludedChannels returns the channel names that are never picked
func ExcludedChannels() []string {
	return slices.Clone(excludedChannels)
}

var (
	ErrNoEligibleChannel = errors.New("no eligible channel")
	ErrNoPinnedMessage   = errors.New("no pinned message")
	ErrRunInProgress     = errors.New("a quote run is already in progress")
)

// Outcome is how a run ended
type Outcome string

const (
	OutcomePosted    Outcome = "posted"
	OutcomeDryRun    Outcome = "dry_run"
	OutcomeNoChannel Outcome = "no_channel"
	OutcomeNoPin     Outcome = "no_pin"
	OutcomeFailed    Outcome = "failed"
)

// Source is the read side of the Slack Web API
type Source interface {
	ListChannels(ctx context.Context) ([]models.Channel, error)
	ListPins(ctx context.Context, channelID string) ([]models.Pin, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Publisher posts the final message
type Publisher interface {
	PostWebhook(ctx context.Context, text string) (int, error)
}

// Result describes one invocation
type Result struct {
	RunID         string
	Outcome       Outcome
	Channel       models.Channel
	Message       models.Message
	Author        string
	Text          string
	WebhookStatus int

	// PostedAt is when the quoted message was written; zero if its ts is unparseable
	PostedAt time.Time
}

// Job picks and posts the quote of the week. Runs never overlap.
type Job struct {
	source    Source
	publisher Publisher
	excluded  map[string]struct{}
	index     IndexFunc
	logger    *slog.Logger
	metrics   *metrics.Metrics
	dryRun    io.Writer
	newRunID  func() string

	mu sync.Mutex
}

// Option customizes a Job
type Option func(*Job)

// WithIndexFunc replaces the random index source
func WithIndexFunc(index IndexFunc) Option {
	return func(j *Job) {
		if index != nil {
			j.index = index
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// WithDryRun writes the formatted message to w instead of posting it
func WithDryRun(w io.Writer) Option {
	return func(j *Job) { j.dryRun = w }
}

// New creates a Job reading from source and posting through publisher
func New(source Source, publisher Publisher, opts ...Option) *Job {
	j := &Job{
		source:    source,
		publisher: publisher,
		excluded:  make(map[string]struct{}, len(excludedChannels)),
		index:     defaultIndex,
		logger:    slog.Default(),
		newRunID:  uuid.NewString,
	}
	for _, name := range excludedChannels {
		j.excluded[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run executes one invocation, waiting for any run already in progress.
// Empty channel or pin lists end the run with a nil error.
func (j *Job) Run(ctx context.Context) (Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.run(ctx)
}

// TryRun is Run but returns ErrRunInProgress instead of waiting
func (j *Job) TryRun(ctx context.Context) (Result, error) {
	if !j.mu.TryLock() {
		return Result{}, ErrRunInProgress
	}
	defer j.mu.Unlock()
	return j.run(ctx)
}

func (j *Job) run(ctx context.Context) (Result, error) {
	res := Result{RunID: j.newRunID()}
	log := j.logger.With("run_id", res.RunID)
	ctx = withLogger(ctx, log)

	log.Info("quote_run_started")
	err := j.execute(ctx, &res)
	j.metrics.ObserveRun(string(res.Outcome), res.Outcome == OutcomePosted)

	if err != nil {
		log.Error("quote_run_failed", "error", err)
		return res, err
	}
	log.Info("quote_run_finished", "outcome", res.Outcome, "channel", res.Channel.Name, "author", res.Author)
	return res, nil
}

func (j *Job) execute(ctx context.Context, res *Result) error {
	log := loggerFrom(ctx, j.logger)

	channel, err := j.SelectRandomChannel(ctx)
	if errors.Is(err, ErrNoEligibleChannel) {
		log.Warn("no_eligible_channel")
		res.Outcome = OutcomeNoChannel
		return nil
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		return err
	}
	res.Channel = channel

	msg, err := j.SelectRandomPin(ctx, channel.ID)
	if errors.Is(err, ErrNoPinnedMessage) {
		log.Warn("no_pinned_message", "channel", channel.Name)
		res.Outcome = OutcomeNoPin
		return nil
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		return err
	}
	res.Message = msg
	if postedAt, err := utils.ParseTimestamp(msg.Timestamp); err == nil {
		res.PostedAt = postedAt
	}

	res.Author = j.ResolveAuthorName(ctx, msg.User)

	text, status, err := j.ComposeAndPost(ctx, msg, res.Author)
	res.Text = text
	res.WebhookStatus = status
	switch {
	case err != nil:
		res.Outcome = OutcomeFailed
		return err
	case j.dryRun != nil:
		res.Outcome = OutcomeDryRun
	default:
		res.Outcome = OutcomePosted
	}
	return nil
}

// SelectRandomChannel lists channels, drops excluded names and picks one
func (j *Job) SelectRandomChannel(ctx context.Context) (models.Channel, error) {
	channels, err := j.source.ListChannels(ctx)
	if err != nil {
		return models.Channel{}, err
	}

	eligible := make([]models.Channel, 0, len(channels))
	for _, channel := range channels {
		if _, skip := j.excluded[channel.Name]; skip {
			continue
		}
		eligible = append(eligible, channel)
	}

	channel, ok := pickRandom(eligible, j.index)
	if !ok {
		return models.Channel{}, ErrNoEligibleChannel
	}

	loggerFrom(ctx, j.logger).Debug("channel_selected", "channel", channel.Name, "eligible", len(eligible), "total", len(channels))
	return channel, nil
}

// SelectRandomPin picks one pinned message of the channel
func (j *Job) SelectRandomPin(ctx context.Context, channelID string) (models.Message, error) {
	pins, err := j.source.ListPins(ctx, channelID)
	if err != nil {
		return models.Message{}, err
	}

	pin, ok := pickRandom(pins, j.index)
	if !ok || pin.Message == nil {
		return models.Message{}, ErrNoPinnedMessage
	}

	log := loggerFrom(ctx, j.logger)
	if postedAt, err := utils.ParseTimestamp(pin.Message.Timestamp); err == nil {
		log = log.With("posted_at", utils.UnixTimestampToHumanReadable(postedAt.Unix()))
	} else {
		log = log.With("ts", pin.Message.Timestamp)
	}
	log.Debug("pin_selected", "channel_id", channelID, "pins", len(pins), "permalink", pin.Message.Permalink)
	return *pin.Message, nil
}

// ResolveAuthorName always returns a display string, falling back to
// FallbackAuthor when the user is unknown or the lookup fails.
func (j *Job) ResolveAuthorName(ctx context.Context, authorID string) string {
	users, err := j.source.ListUsers(ctx)
	if err != nil {
		loggerFrom(ctx, j.logger).Warn("author_lookup_failed", "user_id", authorID, "error", err)
		return FallbackAuthor
	}
	return authorName(users, authorID)
}

// ComposeAndPost formats the message and posts it. A non-2xx webhook
// status is logged, never returned as an error.
func (j *Job) ComposeAndPost(ctx context.Context, msg models.Message, author string) (string, int, error) {
	text := FormatQuote(msg, author)
	log := loggerFrom(ctx, j.logger)

	if j.dryRun != nil {
		if _, err := fmt.Fprintln(j.dryRun, text); err != nil {
			return text, 0, fmt.Errorf("failed to write dry run output: %w", err)
		}
		return text, 0, nil
	}

	status, err := j.publisher.PostWebhook(ctx, text)
	if err != nil {
		return text, 0, fmt.Errorf("failed to post quote: %w", err)
	}
	if status < 200 || status > 299 {
		log.Warn("webhook_post_rejected", "status", status)
	}
	return text, status, nil
}

type loggerKey struct{}

func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return fallback
}
