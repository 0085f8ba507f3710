package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fr4nk3nst1ner/slackquote/internal/metrics"
	"github.com/fr4nk3nst1ner/slackquote/internal/quote"
)

// Trigger starts a run unless one is already in progress
type Trigger interface {
	TryRun(ctx context.Context) (quote.Result, error)
}

// RunResponse is the body of POST /run
type RunResponse struct {
	RunID         string `json:"run_id"`
	Outcome       string `json:"outcome"`
	Channel       string `json:"channel,omitempty"`
	Author        string `json:"author,omitempty"`
	Text          string `json:"text,omitempty"`
	WebhookStatus int    `json:"webhook_status,omitempty"`
}

// NewRouter registers /healthz, /metrics and POST /run
func NewRouter(trigger Trigger, m *metrics.Metrics, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := mux.NewRouter()
	r.Use(logRequests(logger))

	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/run", runHandler(trigger, logger)).Methods(http.MethodPost)
	return r
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func runHandler(trigger Trigger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// the run outlives a dropped client connection
		ctx := context.WithoutCancel(r.Context())

		res, err := trigger.TryRun(ctx)
		switch {
		case errors.Is(err, quote.ErrRunInProgress):
			jsonError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			logger.Error("manual_run_failed", "run_id", res.RunID, "error", err)
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusAccepted, RunResponse{
			RunID:         res.RunID,
			Outcome:       string(res.Outcome),
			Channel:       res.Channel.Name,
			Author:        res.Author,
			Text:          res.Text,
			WebhookStatus: res.WebhookStatus,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Server wraps http.Server with start and graceful shutdown
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background. The returned channel carries the
// serve error, if any, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ops_server_listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("ops_server_stopping")
	return s.srv.Shutdown(ctx)
}
