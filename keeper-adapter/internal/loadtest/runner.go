package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Checker-Finance/secrets-gateway/internal/httpclient"
	"github.com/Checker-Finance/secrets-gateway/internal/rate"
)

type secretBody struct {
	OK            bool  `json:"ok"`
	RealCallCount int64 `json:"realCallCount"`
}

// Runner executes scenarios over HTTP.
type Runner struct {
	logger *zap.Logger
	client *http.Client
}

// NewRunner creates a Runner. A nil client uses a client with a 30s timeout.
func NewRunner(logger *zap.Logger, client *http.Client) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Runner{logger: logger, client: client}
}

// Run drives the scenario until every VU is done or the time budget is spent.
// Requests cut short by the budget are dropped from the report.
func (r *Runner) Run(ctx context.Context, s Scenario) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	budget := s.MaxDuration
	if s.Iterations == 0 && s.Duration > 0 && (budget <= 0 || s.Duration < budget) {
		budget = s.Duration
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	var pacer *rate.Manager
	if s.Pace > 0 {
		pacer = rate.NewManager(rate.Config{RequestsPerSecond: 1 / s.Pace.Seconds(), Burst: 1})
	}
	exec := httpclient.New(r.logger, pacer, r.client, "loadtest")

	report := newReport(s.Name)
	r.logger.Info("loadtest.started",
		zap.String("scenario", s.Name),
		zap.String("url", s.URL),
		zap.Int("vus", s.VUs),
		zap.Int("iterations", s.Iterations),
		zap.Duration("budget", budget))

	g, gctx := errgroup.WithContext(ctx)
	for vu := 1; vu <= s.VUs; vu++ {
		g.Go(func() error {
			key := fmt.Sprintf("vu-%d", vu)
			for i := 0; s.Iterations == 0 || i < s.Iterations; i++ {
				if gctx.Err() != nil {
					return nil
				}
				sample, done := r.hit(gctx, exec, s, vu, key)
				if done {
					return nil
				}
				report.add(sample, !s.accepts(sample.Status))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	r.logger.Info("loadtest.finished",
		zap.String("scenario", s.Name),
		zap.Int("requests", report.Requests()),
		zap.Int("real_calls", report.RealCalls()),
		zap.Int("limit_rejections", report.LimitRejections()),
		zap.Int("hard_errors", report.HardErrors()))
	return report, nil
}

// hit performs one request. done is true when the run budget expired mid-request.
func (r *Runner) hit(ctx context.Context, exec *httpclient.Executor, s Scenario, vu int, key string) (Sample, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Sample{VU: vu, Err: err}, false
	}

	var body secretBody
	var out any
	if s.TrackRealCalls {
		out = &body
	}

	res, err := exec.DoJSON(ctx, req, key, out)
	if ctx.Err() != nil {
		return Sample{}, true
	}

	sample := Sample{VU: vu, Status: res.Status, Latency: res.Latency, Err: err}
	var statusErr *httpclient.StatusError
	if err != nil && !errors.As(err, &statusErr) {
		r.logger.Warn("loadtest.request_failed",
			zap.Int("vu", vu),
			zap.Error(err))
	}
	if s.TrackRealCalls && res.Status == http.StatusOK && err == nil && body.OK {
		sample.RealCall = true
	}
	return sample, false
}
