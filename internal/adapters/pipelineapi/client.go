// Package pipelineapi implements core.PipelineClient over the content pipeline
// backend's REST API.
package pipelineapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/target/mmk-content-dashboard/config"
	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/observability/metrics"
	"github.com/target/mmk-content-dashboard/internal/observability/statsd"
	"github.com/target/mmk-content-dashboard/internal/util"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	maxResponseBytes  = 32 << 20
	maxErrorBodyBytes = 4 << 10
	defaultRetryDelay = 200 * time.Millisecond
	requestIDHeader   = "X-Request-ID"
)

// Config captures the backend connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retries is the number of extra attempts for GETs that fail with a
	// transport error or 5xx.
	Retries    int
	RetryDelay time.Duration
	// OAuth enables client-credentials auth when non-nil.
	OAuth      *clientcredentials.Config
	HTTPClient *http.Client
	Metrics    statsd.Sink
	Logger     *slog.Logger
}

// ConfigFrom builds a Config from the backend settings.
func ConfigFrom(cfg config.BackendConfig) Config {
	out := Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Retries: cfg.Retries,
	}
	if cfg.OAuthEnabled() {
		out.OAuth = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
	}
	return out
}

// Client talks to the pipeline backend. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	http       *http.Client
	retries    int
	retryDelay time.Duration
	metrics    statsd.Sink
	logger     *slog.Logger
}

var _ core.PipelineClient = (*Client)(nil)

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("pipeline backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base url must be http or https, got %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	if cfg.OAuth != nil {
		// The token source uses hc for token requests; the returned client
		// wraps its transport.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		authed := cfg.OAuth.Client(ctx)
		authed.Timeout = hc.Timeout
		hc = authed
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:       base,
		http:       hc,
		retries:    max(cfg.Retries, 0),
		retryDelay: retryDelay,
		metrics:    cfg.Metrics,
		logger:     logger.With("component", "pipelineapi"),
	}, nil
}

// ListJobs returns the raw job list payload.
func (c *Client) ListJobs(ctx context.Context) (any, error) {
	return c.get(ctx, "jobs", "jobs")
}

// GetJob returns one job's status payload.
func (c *Client) GetJob(ctx context.Context, jobID string) (any, error) {
	return c.get(ctx, "job", "jobs", jobID)
}

// GetJobResult returns the raw final result payload of a job.
func (c *Client) GetJobResult(ctx context.Context, jobID string) (any, error) {
	return c.get(ctx, "job_result", "jobs", jobID, "result")
}

// ListSubjobs returns the sub-jobs spawned by a job.
func (c *Client) ListSubjobs(ctx context.Context, jobID string) (any, error) {
	return c.get(ctx, "subjobs", "jobs", jobID, "subjobs")
}

// GetSubjobResult returns one sub-job's raw result payload.
func (c *Client) GetSubjobResult(ctx context.Context, jobID, subjobID string) (any, error) {
	return c.get(ctx, "subjob_result", "jobs", jobID, "subjobs", subjobID, "result")
}

// ListApprovals returns the approvals tracked for a job.
func (c *Client) ListApprovals(ctx context.Context, jobID string) (any, error) {
	return c.get(ctx, "approvals", "jobs", jobID, "approvals")
}

// GetApproval returns the approval for one step of a job.
func (c *Client) GetApproval(ctx context.Context, jobID, step string) (any, error) {
	return c.get(ctx, "approval", "jobs", jobID, "approvals", step)
}

// SubmitApproval forwards a reviewer decision.
func (c *Client) SubmitApproval(ctx context.Context, jobID, step string, decision model.ApprovalDecision) error {
	body, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode approval decision: %w", err)
	}
	_, err = c.do(ctx, call{
		endpoint:    "approval_submit",
		method:      http.MethodPost,
		segments:    []string{"jobs", jobID, "approvals", step},
		body:        body,
		contentType: "application/json",
	})
	return err
}

// RunPipeline starts a pipeline over previously uploaded content.
func (c *Client) RunPipeline(ctx context.Context, req model.RunPipelineRequest) (any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}
	return c.do(ctx, call{
		endpoint:    "pipeline_run",
		method:      http.MethodPost,
		segments:    []string{"pipeline", "run"},
		body:        body,
		contentType: "application/json",
	})
}

func (c *Client) get(ctx context.Context, endpoint string, segments ...string) (any, error) {
	return c.do(ctx, call{endpoint: endpoint, method: http.MethodGet, segments: segments})
}

// call describes one backend request. body is replayable so GETs can retry.
type call struct {
	endpoint    string
	method      string
	segments    []string
	body        []byte
	contentType string
	requestID   string
}

func (c *Client) do(ctx context.Context, in call) (any, error) {
	target, err := c.url(in.segments)
	if err != nil {
		return nil, err
	}

	// Retries reuse one ID so the backend can correlate them with the
	// dashboard request that caused them.
	in.requestID = util.RequestIDFromContext(ctx)
	if in.requestID == "" {
		in.requestID = uuid.NewString()
	}

	attempts := 1
	if in.method == http.MethodGet {
		attempts += c.retries
	}

	start := time.Now()
	var (
		out     any
		status  int
		lastErr error
		tries   int
	)
	for attempt := range attempts {
		tries = attempt + 1
		out, status, lastErr = c.once(ctx, in, target)
		if lastErr == nil || !retryable(ctx, status) || attempt == attempts-1 {
			break
		}
		c.logger.DebugContext(ctx, "retrying backend request",
			"endpoint", in.endpoint, "attempt", tries, "status", status, "error", lastErr)
		if werr := wait(ctx, time.Duration(attempt+1)*c.retryDelay); werr != nil {
			lastErr = mapTransportError(werr)
			break
		}
	}

	metrics.EmitBackendRequest(c.metrics, metrics.BackendRequest{
		Endpoint: in.endpoint,
		Method:   in.method,
		Status:   status,
		Attempts: tries,
		Duration: time.Since(start),
		Err:      lastErr,
	})
	if lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (c *Client) once(ctx context.Context, in call, target string) (any, int, error) {
	var body io.Reader
	if in.body != nil {
		body = bytes.NewReader(in.body)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build backend request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, in.requestID)
	if in.contentType != "" {
		req.Header.Set("Content-Type", in.contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, mapTransportError(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "close backend response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, statusError(in.endpoint, resp)
	}
	out, err := decodeBody(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, apperrors.Wrapf(err, apperrors.ErrCodeUpstream,
			"backend %s returned an unreadable response", in.endpoint)
	}
	return out, resp.StatusCode, nil
}

func (c *Client) url(segments []string) (string, error) {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return "", apperrors.Validation("path parameter must not be empty")
		}
		escaped = append(escaped, url.PathEscape(s))
	}
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	return u.String(), nil
}

// decodeBody decodes a JSON response into jsonv values. An empty body is nil.
func decodeBody(r io.Reader) (any, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return jsonv.Decode(data)
}

// retryable reports whether a failed attempt may be repeated. Status 0 is a
// transport error.
func retryable(ctx context.Context, status int) bool {
	if ctx.Err() != nil {
		return false
	}
	return status == 0 || status >= 500
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
