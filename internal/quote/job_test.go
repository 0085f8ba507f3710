package quote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fr4nk3nst1ner/slackquote/internal/metrics"
	"github.com/fr4nk3nst1ner/slackquote/internal/models"
)

type fakeSource struct {
	mu sync.Mutex

	channels    []models.Channel
	channelsErr error
	pins        map[string][]models.Pin
	pinsErr     error
	users       []models.User
	usersErr    error

	channelCalls int
	pinCalls     int
	userCalls    int
}

func (f *fakeSource) ListChannels(ctx context.Context) ([]models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelCalls++
	return f.channels, f.channelsErr
}

func (f *fakeSource) ListPins(ctx context.Context, channelID string) ([]models.Pin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinCalls++
	return f.pins[channelID], f.pinsErr
}

func (f *fakeSource) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	return f.users, f.usersErr
}

type fakePublisher struct {
	status int
	err    error
	posts  []string

	entered chan struct{}
	release chan struct{}
}

func (f *fakePublisher) PostWebhook(ctx context.Context, text string) (int, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.posts = append(f.posts, text)
	if f.status == 0 && f.err == nil {
		return 200, nil
	}
	return f.status, f.err
}

func first(int) int { return 0 }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func helloSource() *fakeSource {
	return &fakeSource{
		channels: []models.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "thracia"}},
		pins: map[string][]models.Pin{
			"C1": {{Type: "message", Message: &models.Message{Text: "Hello", Timestamp: "1690000000.5", User: "U1"}}},
		},
		users: []models.User{{ID: "U1", Name: "Alice"}},
	}
}

func TestRunPostsQuote(t *testing.T) {
	src := helloSource()
	pub := &fakePublisher{}
	m := metrics.New()
	job := New(src, pub, WithIndexFunc(first), WithLogger(quietLogger()), WithMetrics(m))

	res, err := job.Run(context.Background())
	require.NoError(t, err)

	want := `It's Monday! Here is the *Super Hobby Friends Quote of the Week*: "Hello" - Alice, <!date^1690000000^{date}|some nebulous point in the past>`
	require.Len(t, pub.posts, 1)
	assert.Equal(t, want, pub.posts[0])
	assert.Equal(t, want, res.Text)
	assert.Equal(t, OutcomePosted, res.Outcome)
	assert.Equal(t, "general", res.Channel.Name)
	assert.Equal(t, "Alice", res.Author)
	assert.Equal(t, 200, res.WebhookStatus)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, 1, src.channelCalls)
	assert.Equal(t, 1, src.pinCalls)
	assert.Equal(t, 1, src.userCalls)
	count, err := testutil.GatherAndCount(m.Registry, "slackquote_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunAllChannelsExcluded(t *testing.T) {
	var channels []models.Channel
	for i, name := range ExcludedChannels() {
		channels = append(channels, models.Channel{ID: string(rune('A' + i)), Name: name})
	}
	src := &fakeSource{channels: channels}
	pub := &fakePublisher{}
	job := New(src, pub, WithLogger(quietLogger()))

	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChannel, res.Outcome)
	assert.Equal(t, 0, src.pinCalls)
	assert.Equal(t, 0, src.userCalls)
	assert.Empty(t, pub.posts)
}

func TestRunNoChannels(t *testing.T) {
	src := &fakeSource{}
	pub := &fakePublisher{}

	res, err := New(src, pub, WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChannel, res.Outcome)
	assert.Empty(t, pub.posts)
}

func TestRunNoPins(t *testing.T) {
	src := helloSource()
	src.pins = nil
	pub := &fakePublisher{}

	res, err := New(src, pub, WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoPin, res.Outcome)
	assert.Equal(t, 0, src.userCalls)
	assert.Empty(t, pub.posts)
}

func TestRunPinWithoutMessage(t *testing.T) {
	src := helloSource()
	src.pins["C1"] = []models.Pin{{Type: "file"}}
	pub := &fakePublisher{}

	res, err := New(src, pub, WithIndexFunc(first), WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoPin, res.Outcome)
	assert.Empty(t, pub.posts)
}

func TestExcludedChannelNeverSelected(t *testing.T) {
	src := &fakeSource{channels: []models.Channel{
		{ID: "C1", Name: "civ"},
		{ID: "C2", Name: "general"},
		{ID: "C3", Name: "hotsow"},
	}}
	job := New(src, nil, WithLogger(quietLogger()))

	for i := 0; i < 200; i++ {
		ch, err := job.SelectRandomChannel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "C2", ch.ID)
	}
}

func TestSelectionReachesEveryIndex(t *testing.T) {
	channels := []models.Channel{
		{ID: "C1", Name: "a"}, {ID: "C2", Name: "b"}, {ID: "C3", Name: "c"},
		{ID: "C4", Name: "d"}, {ID: "C5", Name: "e"},
	}
	job := New(&fakeSource{channels: channels}, nil, WithIndexFunc(rand.IntN), WithLogger(quietLogger()))

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		ch, err := job.SelectRandomChannel(context.Background())
		require.NoError(t, err)
		seen[ch.ID] = true
	}
	assert.Len(t, seen, len(channels))
	assert.True(t, seen["C5"], "last channel must be reachable")
}

func TestPickRandomUsesLastIndex(t *testing.T) {
	items := []string{"a", "b", "c"}
	got, ok := pickRandom(items, func(n int) int { return n - 1 })
	require.True(t, ok)
	assert.Equal(t, "c", got)

	_, ok = pickRandom([]string{}, func(n int) int { return 0 })
	assert.False(t, ok)
}

func TestResolveAuthorName(t *testing.T) {
	tests := []struct {
		name  string
		users []models.User
		err   error
		id    string
		want  string
	}{
		{name: "match", users: []models.User{{ID: "U1", Name: "Alice"}}, id: "U1", want: "Alice"},
		{name: "first match wins", users: []models.User{{ID: "U1", Name: "Alice"}, {ID: "U1", Name: "Bob"}}, id: "U1", want: "Alice"},
		{name: "no match", users: []models.User{{ID: "U2", Name: "Bob"}}, id: "U1", want: FallbackAuthor},
		{name: "empty name", users: []models.User{{ID: "U1"}}, id: "U1", want: FallbackAuthor},
		{name: "empty author id", users: []models.User{{ID: "U1", Name: "Alice"}}, id: "", want: FallbackAuthor},
		{name: "lookup failure", err: errors.New("boom"), id: "U1", want: FallbackAuthor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := New(&fakeSource{users: tt.users, usersErr: tt.err}, nil, WithLogger(quietLogger()))
			assert.Equal(t, tt.want, job.ResolveAuthorName(context.Background(), tt.id))
		})
	}
}

func TestFormatQuote(t *testing.T) {
	tests := []struct {
		ts   string
		want string
	}{
		{ts: "1690000000.123456", want: "<!date^1690000000^{date}|"},
		{ts: "1690000000", want: "<!date^1690000000^{date}|"},
		{ts: ".5", want: "<!date^.5^{date}|"},
	}
	for _, tt := range tests {
		got := FormatQuote(models.Message{Text: "x", Timestamp: tt.ts}, "Bob")
		assert.Contains(t, got, tt.want)
		assert.Contains(t, got, `"x" - Bob, `)
	}
}

func TestRunTransportErrorFails(t *testing.T) {
	boom := errors.New("connection refused")
	src := &fakeSource{channelsErr: boom}
	pub := &fakePublisher{}
	m := metrics.New()

	res, err := New(src, pub, WithLogger(quietLogger()), WithMetrics(m)).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Empty(t, pub.posts)
	count, err := testutil.GatherAndCount(m.Registry, "slackquote_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunUserLookupFailureStillPosts(t *testing.T) {
	src := helloSource()
	src.usersErr = errors.New("ratelimited")
	pub := &fakePublisher{}

	res, err := New(src, pub, WithIndexFunc(first), WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FallbackAuthor, res.Author)
	require.Len(t, pub.posts, 1)
	assert.Contains(t, pub.posts[0], `"Hello" - A wise soul, `)
}

func TestRunWebhookRejectionIsNotFatal(t *testing.T) {
	src := helloSource()
	pub := &fakePublisher{status: 500}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	res, err := New(src, pub, WithIndexFunc(first), WithLogger(logger)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomePosted, res.Outcome)
	assert.Equal(t, 500, res.WebhookStatus)
	assert.Contains(t, logs.String(), "webhook_post_rejected")
	assert.Contains(t, logs.String(), "run_id="+res.RunID)
}

func TestRunWebhookTransportFailure(t *testing.T) {
	boom := errors.New("dial tcp: timeout")
	pub := &fakePublisher{err: boom}

	res, err := New(helloSource(), pub, WithIndexFunc(first), WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestRunDryRun(t *testing.T) {
	var out bytes.Buffer
	pub := &fakePublisher{}

	res, err := New(helloSource(), pub, WithIndexFunc(first), WithLogger(quietLogger()), WithDryRun(&out)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDryRun, res.Outcome)
	assert.Empty(t, pub.posts)
	assert.Equal(t, res.Text+"\n", out.String())
}

func TestTryRunWhileRunning(t *testing.T) {
	pub := &fakePublisher{entered: make(chan struct{}), release: make(chan struct{})}
	job := New(helloSource(), pub, WithIndexFunc(first), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() {
		_, err := job.Run(context.Background())
		done <- err
	}()

	<-pub.entered
	_, err := job.TryRun(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(pub.release)
	require.NoError(t, <-done)
	assert.Len(t, pub.posts, 1)
}

func TestExcludedChannelsIsACopy(t *testing.T) {
	names := ExcludedChannels()
	assert.ElementsMatch(t, []string{"thracia", "playground", "programming", "gm-talk", "civ", "hotsow"}, names)
	names[0] = "general"
	assert.Equal(t, "thracia", ExcludedChannels()[0])
}

func TestRunRecordsWhenQuoteWasPosted(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	res, err := New(helloSource(), &fakePublisher{}, WithIndexFunc(first), WithLogger(logger)).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.PostedAt.Equal(time.Unix(1690000000, 0)), "got %s", res.PostedAt)
	assert.Contains(t, logs.String(), "msg=pin_selected")
	assert.Contains(t, logs.String(), `posted_at="`+time.Unix(1690000000, 0).Format("2006-01-02 15:04:05")+`"`)
}

func TestRunUnparseableTimestampLeavesPostedAtZero(t *testing.T) {
	src := helloSource()
	src.pins["C1"][0].Message.Timestamp = "soon"

	res, err := New(src, &fakePublisher{}, WithIndexFunc(first), WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.PostedAt.IsZero())
	assert.Contains(t, res.Text, "<!date^soon^{date}|")
}

func TestEmptyResultEventNames(t *testing.T) {
	tests := []struct {
		name  string
		src   *fakeSource
		event string
	}{
		{name: "no channel", src: &fakeSource{}, event: "msg=no_eligible_channel"},
		{name: "no pin", src: &fakeSource{channels: []models.Channel{{ID: "C1", Name: "general"}}}, event: "msg=no_pinned_message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			_, err := New(tt.src, &fakePublisher{}, WithLogger(logger)).Run(context.Background())
			require.NoError(t, err)
			assert.Contains(t, logs.String(), tt.event)
			assert.Contains(t, logs.String(), "level=WARN")
		})
	}
}
