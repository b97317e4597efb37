package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/internal/rate"
)

func newExec(client *http.Client) *Executor {
	return New(zap.NewNop(), nil, client, "test")
}

// ─── Success ──────────────────────────────────────────────────────────────────

func TestDoJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "realCallCount": 3})
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	var out struct {
		OK            bool  `json:"ok"`
		RealCallCount int64 `json:"realCallCount"`
	}
	res, err := newExec(srv.Client()).DoJSON(context.Background(), req, "k", &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, out.RealCallCount)
	assert.Positive(t, res.Latency)
}

// ─── Error statuses are not retried ───────────────────────────────────────────

func TestDoJSON_ErrorStatusNotRetried(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	res, err := newExec(srv.Client()).DoJSON(context.Background(), req, "k", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.EqualValues(t, 1, count.Load(), "exactly one attempt")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
}

// ─── Error bodies are still decoded ──────────────────────────────────────────

func TestDoJSON_TooManyRequestsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"realCallCount":10,"limit":10}`))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	var out map[string]any
	res, err := newExec(srv.Client()).DoJSON(context.Background(), req, "k", &out)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.Status)
	assert.EqualValues(t, 10, out["limit"])

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Contains(t, string(statusErr.Body), "realCallCount")
}

// ─── JSON decode error ────────────────────────────────────────────────────────

func TestDoJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not-json"))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	var out map[string]string
	_, err := newExec(srv.Client()).DoJSON(context.Background(), req, "k", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode failed")
}

// ─── Transport failure ───────────────────────────────────────────────────────

func TestDoJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	_, err := newExec(http.DefaultClient).DoJSON(context.Background(), req, "k", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

// ─── Rate limiting ───────────────────────────────────────────────────────────

func TestDoJSON_RateLimitWaitCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mgr := rate.NewManager(rate.Config{RequestsPerSecond: 0.001, Burst: 1})
	exec := New(zap.NewNop(), mgr, srv.Client(), "test")

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := exec.DoJSON(context.Background(), req, "vu", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = exec.DoJSON(ctx, req, "vu", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}
