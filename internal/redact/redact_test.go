package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"bot token", "auth failed for xoxb-1234-abcd", "auth failed for <redacted>"},
		{"query token", "GET https://slack.com/api/users.list?token=secret&x=1", "GET https://slack.com/api/users.list?token=<redacted>&x=1"},
		{"webhook", "post https://hooks.slack.com/services/T0/B0/abc123 failed", "post https://hooks.slack.com/services/<redacted> failed"},
		{"clean", "nothing to see", "nothing to see"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, String(tc.in))
		})
	}
}

func TestURL(t *testing.T) {
	got := URL("https://slack.com/api/pins.list?channel=C1&token=xoxb-1")
	assert.NotContains(t, got, "xoxb-1")
	assert.Contains(t, got, "channel=C1")
	assert.Contains(t, got, "token=<redacted>")

	got = URL("https://hooks.slack.com/services/T0/B0/abc123")
	assert.Equal(t, "https://hooks.slack.com/services/<redacted>", got)

	assert.Equal(t, "https://slack.com/api/users.list", URL("https://slack.com/api/users.list"))
}

func TestContains(t *testing.T) {
	assert.Equal(t, []string{"slack_token"}, Contains("xoxp-12-34"))
	assert.Empty(t, Contains("plain text"))
}
