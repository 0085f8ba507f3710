package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slackquote"

// Metrics groups the collectors for one process. All methods are safe on
// a nil receiver so callers can run without metrics.
type Metrics struct {
	Registry *prometheus.Registry

	runs         *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
	apiRequests  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	webhookPosts *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Quote job invocations by outcome.",
		}, []string{"outcome"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that posted a quote.",
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slack_api_requests_total",
			Help:      "Slack Web API calls by method and result.",
		}, []string{"method", "result"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slack_api_request_duration_seconds",
			Help:      "Latency of Slack Web API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		webhookPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_posts_total",
			Help:      "Webhook POSTs by HTTP status code.",
		}, []string{"code"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs,
		m.lastSuccess,
		m.apiRequests,
		m.apiDuration,
		m.webhookPosts,
	)
	return m
}

// ObserveRun records one finished invocation
func (m *Metrics) ObserveRun(outcome string, posted bool) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if posted {
		m.lastSuccess.SetToCurrentTime()
	}
}

// ObserveRequest records one Web API call
func (m *Metrics) ObserveRequest(method, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, result).Inc()
	m.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveWebhook records the status of a webhook POST; 0 means transport failure
func (m *Metrics) ObserveWebhook(status int) {
	if m == nil {
		return
	}
	m.webhookPosts.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
