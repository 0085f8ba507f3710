package ops

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/fr4nk3nst1ner/slackquote/internal/redact"
)

var sensitive = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"x-api-key":     {},
}

func redactHeaderValue(k, v string) string {
	if v == "" {
		return ""
	}
	if _, ok := sensitive[strings.ToLower(k)]; ok {
		return "<redacted>"
	}
	return redact.String(v)
}

// SafeHeaders renders request headers for logging with secrets removed.
// Only the first value of each header is kept.
func SafeHeaders(r *http.Request) string {
	keys := make([]string, 0, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+redactHeaderValue(k, r.Header.Get(k)))
	}
	return strings.Join(parts, "; ")
}

// leakedSecrets names the detectors matching the request URI or any header value
func leakedSecrets(r *http.Request) []string {
	values := []string{r.URL.RequestURI()}
	for _, v := range r.Header {
		values = append(values, v...)
	}
	return redact.Contains(strings.Join(values, "\n"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request after it completes
func logRequests(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log := logger
			if found := leakedSecrets(r); len(found) > 0 {
				log = log.With("secrets", strings.Join(found, ","))
			}
			log.Info("incoming_request",
				"method", r.Method,
				"path", redact.URL(r.URL.RequestURI()),
				"remote", r.RemoteAddr,
				"status", rec.status,
				"duration", time.Since(start),
				"headers", SafeHeaders(r),
			)
		})
	}
}
