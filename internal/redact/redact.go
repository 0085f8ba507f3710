package redact

import (
	"net/url"
	"regexp"
	"strings"
)

const placeholder = "<redacted>"

// Detector pairs a name with the pattern it scrubs
type Detector struct {
	Name    string
	Pattern *regexp.Regexp
}

// detectors are applied in order; webhook paths go first so the token
// detector does not split them.
var detectors = []Detector{
	{Name: "slack_webhook", Pattern: regexp.MustCompile(`hooks\.slack\.com/(services|workflows|triggers)/[A-Za-z0-9/_-]+`)},
	{Name: "slack_token", Pattern: regexp.MustCompile(`xox[a-zA-Z]-[a-zA-Z0-9-]+`)},
	{Name: "token_param", Pattern: regexp.MustCompile(`([?&]token=)[^&\s"]+`)},
}

var sensitiveParams = map[string]struct{}{
	"token":         {},
	"client_secret": {},
}

// String scrubs every known secret pattern from s
func String(s string) string {
	if s == "" {
		return s
	}
	for _, d := range detectors {
		switch d.Name {
		case "slack_webhook":
			s = d.Pattern.ReplaceAllString(s, "hooks.slack.com/$1/"+placeholder)
		case "token_param":
			s = d.Pattern.ReplaceAllString(s, "${1}"+placeholder)
		default:
			s = d.Pattern.ReplaceAllString(s, placeholder)
		}
	}
	return s
}

// URL returns raw with sensitive query values and webhook path secrets
// replaced. Unparseable input falls back to String.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return String(raw)
	}

	q := u.Query()
	changed := false
	for key := range q {
		if _, ok := sensitiveParams[strings.ToLower(key)]; ok {
			q.Set(key, placeholder)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}

	if strings.EqualFold(u.Host, "hooks.slack.com") {
		if parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2); len(parts) == 2 {
			u.Path = "/" + parts[0] + "/" + placeholder
			u.RawPath = ""
		}
	}

	// url.Values.Encode escapes the angle brackets
	return strings.NewReplacer("%3Credacted%3E", placeholder).Replace(u.String())
}

// Contains reports which detectors match s
func Contains(s string) []string {
	var found []string
	for _, d := range detectors {
		if d.Pattern.MatchString(s) {
			found = append(found, d.Name)
		}
	}
	return found
}
