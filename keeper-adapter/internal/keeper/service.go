package keeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/internal/audit"
	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/metrics"
	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/quota"
	"github.com/Checker-Finance/secrets-gateway/pkg/model"
	"github.com/Checker-Finance/secrets-gateway/pkg/secrets"
	"github.com/Checker-Finance/secrets-gateway/pkg/utils"
)

const recordTimeout = 2 * time.Second

// SecretFetcher is the contract the service needs from the fetcher.
type SecretFetcher interface {
	Fetch(ctx context.Context, uid string) (*secrets.Record, error)
}

// Summary is the caller-safe projection of a fetched record.
type Summary struct {
	UID   string
	Title string
}

// Result is a successful gated fetch.
type Result struct {
	RealCallCount int64
	Summary       Summary
}

// Service gates real secret-store calls behind the process call counter.
type Service struct {
	logger    *zap.Logger
	service   string
	backend   string
	recordUID string
	counter   *quota.Counter
	fetcher   SecretFetcher
	recorder  audit.Recorder
}

// NewService wires the quota-gated endpoint logic. recorder may be nil.
func NewService(
	logger *zap.Logger,
	service string,
	backend string,
	recordUID string,
	counter *quota.Counter,
	fetcher SecretFetcher,
	recorder audit.Recorder,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.SetQuota(counter.Count(), counter.Limit())
	return &Service{
		logger:    logger,
		service:   service,
		backend:   backend,
		recordUID: recordUID,
		counter:   counter,
		fetcher:   fetcher,
		recorder:  recorder,
	}
}

// QuotaState returns the current counter value, the limit and the attempts left.
func (s *Service) QuotaState() (count, limit, remaining int64) {
	return s.counter.Count(), s.counter.Limit(), s.counter.Remaining()
}

// GetSecret handles one inbound request.
//
// Possible errors: ErrConfiguration, *QuotaExceededError, or an error wrapping
// ErrBackend. The quota slot is taken before the fetch starts, so a failed
// fetch still counts.
func (s *Service) GetSecret(ctx context.Context) (*Result, error) {
	if s.recordUID == "" {
		s.logger.Error("keeper.config_missing", zap.String("env", "KEEPER_SECRET_UID"))
		s.finish(ctx, model.OutcomeConfigError, s.counter.Count(), 0, ErrConfiguration)
		return nil, ErrConfiguration
	}

	n, ok := s.counter.TryAcquire()
	if !ok {
		s.logger.Warn("keeper.quota_exceeded",
			zap.Int64("real_call_count", n),
			zap.Int64("limit", s.counter.Limit()))
		err := &QuotaExceededError{Count: n, Limit: s.counter.Limit()}
		s.finish(ctx, model.OutcomeQuotaExceeded, n, 0, err)
		return nil, err
	}
	metrics.SetQuota(n, s.counter.Limit())

	start := time.Now()
	rec, err := s.fetcher.Fetch(ctx, s.recordUID)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("keeper.backend_error",
			zap.String("uid", utils.MaskUID(s.recordUID)),
			zap.Int64("real_call_count", n),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		s.finish(ctx, model.OutcomeBackendError, n, elapsed, err)
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	summary := Summary{UID: rec.UID, Title: rec.Title}
	if summary.UID == "" {
		summary.UID = s.recordUID
	}

	s.logger.Info("keeper.secret_fetched",
		zap.String("uid", utils.MaskUID(summary.UID)),
		zap.Int64("real_call_count", n),
		zap.Int64("limit", s.counter.Limit()),
		zap.Int64("remaining", s.counter.Remaining()),
		zap.Duration("elapsed", elapsed))
	if n == s.counter.Limit() {
		s.logger.Warn("keeper.quota_closed", zap.Int64("limit", n))
	}
	s.finish(ctx, model.OutcomeSuccess, n, elapsed, nil)

	return &Result{RealCallCount: n, Summary: summary}, nil
}

// finish updates metrics and hands the outcome to the recorder.
// Recorder failures are logged and never change the response.
func (s *Service) finish(ctx context.Context, outcome string, count int64, elapsed time.Duration, cause error) {
	metrics.IncSecretRequest(s.backend, outcome)
	if s.recorder == nil {
		return
	}

	ev := model.FetchEvent{
		ID:            uuid.New(),
		Service:       s.service,
		Backend:       s.backend,
		Outcome:       outcome,
		RecordUID:     utils.MaskUID(s.recordUID),
		RealCallCount: count,
		Limit:         s.counter.Limit(),
		LatencyMs:     elapsed.Milliseconds(),
		Timestamp:     time.Now().UTC(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordFetch(rctx, ev); err != nil {
		metrics.RecorderErrors.Inc()
		s.logger.Warn("keeper.record_failed",
			zap.String("outcome", outcome),
			zap.Error(err))
	}
}
