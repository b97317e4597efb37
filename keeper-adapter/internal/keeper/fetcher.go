package keeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/internal/rate"
	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/metrics"
	"github.com/Checker-Finance/secrets-gateway/pkg/secrets"
	"github.com/Checker-Finance/secrets-gateway/pkg/utils"
)

const rateLimitKey = "keeper"

// Fetcher performs exactly one secret-store round trip per call.
type Fetcher struct {
	logger   *zap.Logger
	provider secrets.Provider
	rateMgr  *rate.Manager
	timeout  time.Duration
}

// NewFetcher builds a Fetcher. rateMgr may be nil; a zero timeout disables the deadline.
func NewFetcher(logger *zap.Logger, provider secrets.Provider, rateMgr *rate.Manager, timeout time.Duration) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		logger:   logger,
		provider: provider,
		rateMgr:  rateMgr,
		timeout:  timeout,
	}
}

// Fetch retrieves the record identified by uid.
// All failures wrap ErrFetchFailed; the cause is kept for logging only.
func (f *Fetcher) Fetch(ctx context.Context, uid string) (*secrets.Record, error) {
	if uid == "" {
		return nil, ErrMissingIdentifier
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	backend := f.provider.Name()
	if f.rateMgr != nil {
		if err := f.rateMgr.Wait(ctx, rateLimitKey); err != nil {
			metrics.IncRealCall(backend, "rate_limited")
			return nil, fmt.Errorf("%w: rate limit wait: %w", ErrFetchFailed, err)
		}
	}

	start := time.Now()
	rec, err := f.provider.GetRecord(ctx, uid)
	metrics.ObserveDuration(metrics.FetchDuration, start, backend)

	if err != nil {
		metrics.IncRealCall(backend, "error")
		f.logger.Warn("keeper.fetch_error",
			zap.String("backend", backend),
			zap.String("uid", utils.MaskUID(uid)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if rec == nil {
		metrics.IncRealCall(backend, "error")
		return nil, fmt.Errorf("%w: empty record for uid [%s]", ErrFetchFailed, utils.MaskUID(uid))
	}

	metrics.IncRealCall(backend, "ok")
	f.logger.Debug("keeper.fetch_success",
		zap.String("backend", backend),
		zap.String("uid", utils.MaskUID(uid)),
		zap.Duration("elapsed", time.Since(start)))
	return rec, nil
}
