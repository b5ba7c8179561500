// Package webhook exposes an HTTP receiver that lets the remote service
// trigger asset processing, so rule changes propagate without waiting for
// the next scheduled batch run.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/seaward/assetctl/pipeline"
)

// basicAuthUser is the fixed username webhook callers authenticate with;
// the secret is the password.
const basicAuthUser = "webhook"

// Payload is the inbound webhook body.
type Payload struct {
	AssetID   string            `json:"asset_id"`
	EventType string            `json:"event_type"`
	Changes   map[string]string `json:"changes,omitempty"`
}

// Response is the JSON body returned for every webhook call.
type Response struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	RunID   string            `json:"run_id,omitempty"`
	Outcome *pipeline.Outcome `json:"outcome,omitempty"`
}

// Runner is the slice of the pipeline the server needs.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error)
}

// Server is the webhook receiver. Each valid event runs the processing
// pipeline synchronously for the named asset, so the HTTP status reflects
// what actually happened.
type Server struct {
	runner Runner
	secret string
	logger *zap.SugaredLogger
	http   *http.Server
}

// NewServer creates a webhook server listening on host:port. secret is the
// shared Basic auth password; an empty secret refuses all requests rather
// than running open.
func NewServer(host string, port int, secret string, runner Runner, logger *zap.SugaredLogger) *Server {
	s := &Server{
		runner: runner,
		secret: secret,
		logger: logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/health", s.handleHealth)
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Infow("Webhook server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, Response{Status: "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.authenticate(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="webhook"`)
		writeResponse(w, http.StatusUnauthorized, Response{Status: "error", Message: "authentication required"})
		return
	}
	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, Response{Status: "error", Message: "POST only"})
		return
	}

	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeResponse(w, http.StatusBadRequest, Response{Status: "error", Message: "malformed JSON payload"})
		return
	}
	if payload.AssetID == "" {
		writeResponse(w, http.StatusBadRequest, Response{Status: "error", Message: "asset_id is required"})
		return
	}

	s.logger.Infow("Webhook event received",
		"asset_id", payload.AssetID,
		"event_type", payload.EventType)

	report, err := s.runner.Run(r.Context(), pipeline.Options{IDs: []string{payload.AssetID}})
	if err != nil {
		s.logger.Errorw("Webhook processing failed", "asset_id", payload.AssetID, "error", err)
		writeResponse(w, http.StatusInternalServerError, Response{Status: "error", Message: err.Error()})
		return
	}

	outcome := &report.Outcomes[0]
	status := http.StatusOK
	respStatus := "ok"
	if outcome.Status == pipeline.StatusFailed {
		status = http.StatusUnprocessableEntity
		respStatus = "error"
	}
	writeResponse(w, status, Response{
		Status:  respStatus,
		RunID:   report.RunID,
		Outcome: outcome,
	})
}

// authenticate checks the Basic credentials in constant time. An empty
// configured secret always fails.
func (s *Server) authenticate(r *http.Request) bool {
	if s.secret == "" {
		return false
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(basicAuthUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.secret)) == 1
	return userOK && passOK
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
