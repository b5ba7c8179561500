package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seaward/assetctl/errors"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	maxBackoff            = 30 * time.Second
)

// TransportConfig configures a Transport.
type TransportConfig struct {
	// Email and APIToken form the basic-auth credential pair.
	Email    string
	APIToken string

	// BaseURL prefixes relative paths. It is usually bound later, after
	// workspace discovery.
	BaseURL string

	Timeout           time.Duration
	MaxRetries        int // retries after the first attempt
	RequestsPerMinute int // 0 disables client-side rate limiting
	InitialBackoff    time.Duration
}

// Transport executes authenticated requests against the remote service with
// bounded exponential-backoff retries. Transient failures (timeouts, 5xx,
// rate limiting) are retried; authentication failures and other client
// errors are not. It does no caching.
type Transport struct {
	httpClient *http.Client
	authHeader string
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger

	maxRetries     int
	initialBackoff time.Duration

	mu      sync.RWMutex
	baseURL string
}

// NewTransport creates a Transport. Authentication is applied to every
// request from the configured credential pair.
func NewTransport(cfg TransportConfig, logger *zap.SugaredLogger) *Transport {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	credentials := cfg.Email + ":" + cfg.APIToken
	return &Transport{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		authHeader:     "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
		limiter:        limiter,
		logger:         logger,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// SetBaseURL binds the base URL for relative paths, typically once the
// workspace has been discovered.
func (t *Transport) SetBaseURL(baseURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseURL = strings.TrimSuffix(baseURL, "/")
}

// SetHTTPClient overrides the HTTP client, for tests.
func (t *Transport) SetHTTPClient(client *http.Client) {
	t.httpClient = client
}

// Execute performs one API call. path may be relative to the bound base URL
// or a full URL (discovery endpoints live on a different host). body is
// JSON-marshalled when non-nil; the response is unmarshalled into out when
// out is non-nil. Errors carry the taxonomy sentinels, so callers classify
// with errors.Is.
func (t *Transport) Execute(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	fullURL, err := t.resolveURL(path, query)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := t.initialBackoff * time.Duration(1<<(attempt-1))
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			t.logger.Debugw("Retrying request",
				"method", method, "url", fullURL,
				"attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "request cancelled")
			case <-time.After(backoff):
			}
		}

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return errors.Wrap(err, "rate limiter wait cancelled")
			}
		}

		lastErr = t.doOnce(ctx, method, fullURL, payload, out)
		if lastErr == nil {
			return nil
		}
		if !errors.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return errors.Wrapf(lastErr, "request failed after %d attempts", t.maxRetries+1)
}

func (t *Transport) resolveURL(path string, query url.Values) (string, error) {
	var fullURL string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		fullURL = path
	} else {
		t.mu.RLock()
		base := t.baseURL
		t.mu.RUnlock()
		if base == "" {
			return "", errors.New("transport base URL not set")
		}
		fullURL = base + "/" + strings.TrimPrefix(path, "/")
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return fullURL, nil
}

// doOnce performs a single attempt and classifies the outcome.
func (t *Transport) doOnce(ctx context.Context, method, fullURL string, payload []byte, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", t.authHeader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "request cancelled")
		}
		return errors.Wrap(errors.ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrNetwork, err.Error())
	}

	t.logger.Debugw("API response", "method", method, "url", fullURL, "status", resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrapf(errors.ErrNetwork, "invalid JSON response (status %d): %v", resp.StatusCode, err)
		}
		return nil
	}

	return t.classifyError(resp.StatusCode, respBody, fullURL)
}

// classifyError maps HTTP failures onto the error taxonomy. 401/403 are
// fatal auth errors, 429 and 5xx are retryable, 404 is not-found, and 400
// is split by the remote error message into invalid-query, schema and
// invalid-update errors.
func (t *Transport) classifyError(status int, body []byte, fullURL string) error {
	message := extractErrorMessage(body)
	if message == "" {
		message = fmt.Sprintf("status %d", status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Wrapf(errors.ErrAuth, "%s (status %d)", message, status)
	case status == http.StatusTooManyRequests:
		return errors.Wrap(errors.ErrRateLimited, message)
	case status == http.StatusNotFound:
		return errors.Wrapf(errors.ErrAssetNotFound, "%s: %s", fullURL, message)
	case status >= 500:
		return errors.Wrapf(errors.ErrNetwork, "server error: %s (status %d)", message, status)
	case status == http.StatusBadRequest:
		lower := strings.ToLower(message)
		switch {
		case strings.Contains(lower, "invalid") || strings.Contains(lower, "syntax") || strings.Contains(lower, "malformed"):
			return errors.Wrap(errors.ErrInvalidQuery, message)
		case strings.Contains(lower, "schema"):
			return errors.Wrap(errors.ErrSchema, message)
		default:
			return errors.Wrap(errors.ErrInvalidUpdate, message)
		}
	default:
		return errors.Wrapf(errors.ErrInvalidUpdate, "%s (status %d)", message, status)
	}
}

func extractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var we wireError
	if err := json.Unmarshal(body, &we); err != nil {
		s := strings.TrimSpace(string(body))
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	return we.text()
}
