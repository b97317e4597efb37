package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/internal/rate"
)

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// Result carries transport-level facts about one executed request.
type Result struct {
	Status  int
	Latency time.Duration
}

// Executor handles rate-limited, single-shot HTTP execution with JSON decoding.
// Requests are never retried: every attempt is observable by the caller.
type Executor struct {
	logger  *zap.Logger
	rateMgr *rate.Manager
	http    *http.Client
	tag     string
}

// New creates an Executor. rateMgr may be nil to disable pacing.
func New(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client, tag string) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Executor{
		logger:  logger,
		rateMgr: rateMgr,
		http:    httpClient,
		tag:     tag,
	}
}

// DoJSON executes req once and JSON-decodes the body into out.
// Bodies of error responses are decoded on a best-effort basis so callers can
// inspect structured error payloads; a *StatusError is returned for them.
func (e *Executor) DoJSON(ctx context.Context, req *http.Request, rateLimitKey string, out any) (Result, error) {
	if e.rateMgr != nil {
		if err := e.rateMgr.Wait(ctx, rateLimitKey); err != nil {
			return Result{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := e.http.Do(req.WithContext(ctx))
	if err != nil {
		e.logger.Warn(e.tag+".http_failed",
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return Result{Latency: time.Since(start)}, fmt.Errorf("%s request failed: %w", e.tag, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	res := Result{Status: resp.StatusCode, Latency: time.Since(start)}
	if readErr != nil {
		return res, fmt.Errorf("%s read body: %w", e.tag, readErr)
	}

	if resp.StatusCode >= 400 {
		if out != nil && len(body) > 0 {
			_ = json.Unmarshal(body, out)
		}
		e.logger.Debug(e.tag+".http_error_status",
			zap.Int("status", resp.StatusCode),
			zap.String("url", req.URL.String()),
			zap.Duration("latency", res.Latency))
		return res, &StatusError{Status: resp.StatusCode, Body: body}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			e.logger.Warn(e.tag+".decode_failed",
				zap.Error(err),
				zap.String("url", req.URL.String()))
			return res, fmt.Errorf("decode failed: %w", err)
		}
	}

	e.logger.Debug(e.tag+".http_success",
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", res.Latency))

	return res, nil
}
