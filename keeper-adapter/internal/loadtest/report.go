package loadtest

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Sample is the outcome of one request.
type Sample struct {
	VU       int
	Status   int
	Latency  time.Duration
	RealCall bool
	Err      error
}

// Report aggregates samples. It is safe for concurrent use.
type Report struct {
	Scenario string

	mu      sync.Mutex
	samples []Sample
	hard    int
	real    int
	limited int
}

func newReport(name string) *Report {
	return &Report{Scenario: name}
}

func (r *Report) add(s Sample, hardError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	if hardError {
		r.hard++
	}
	if s.RealCall {
		r.real++
	}
	if s.Status == http.StatusTooManyRequests {
		r.limited++
	}
}

// Requests is the number of completed requests.
func (r *Report) Requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// RealCalls counts responses that report a real secret-store call.
func (r *Report) RealCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.real
}

// LimitRejections counts 429 responses.
func (r *Report) LimitRejections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limited
}

// HardErrors counts responses outside the accepted statuses, transport failures included.
func (r *Report) HardErrors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hard
}

// ErrorRate is HardErrors / Requests.
func (r *Report) ErrorRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) == 0 {
		return 0
	}
	return float64(r.hard) / float64(len(r.samples))
}

// Percentile returns the p-th latency percentile (0 < p <= 100) using nearest rank.
func (r *Report) Percentile(p float64) time.Duration {
	r.mu.Lock()
	latencies := make([]time.Duration, 0, len(r.samples))
	for _, s := range r.samples {
		latencies = append(latencies, s.Latency)
	}
	r.mu.Unlock()

	if len(latencies) == 0 {
		return 0
	}
	slices.Sort(latencies)
	rank := int(math.Ceil(p / 100 * float64(len(latencies))))
	if rank < 1 {
		rank = 1
	}
	return latencies[rank-1]
}

// Check evaluates thresholds and returns one message per violation.
func (r *Report) Check(th Thresholds) []string {
	var violations []string
	if th.P95Latency > 0 {
		if p95 := r.Percentile(95); p95 >= th.P95Latency {
			violations = append(violations, fmt.Sprintf("p(95) latency %s >= %s", p95, th.P95Latency))
		}
	}
	if th.MaxErrorRate > 0 {
		if rate := r.ErrorRate(); rate >= th.MaxErrorRate {
			violations = append(violations, fmt.Sprintf("hard error rate %.3f >= %.3f", rate, th.MaxErrorRate))
		}
	}
	if th.MaxRealCalls > 0 {
		if n := r.RealCalls(); n > th.MaxRealCalls {
			violations = append(violations, fmt.Sprintf("real calls %d > %d", n, th.MaxRealCalls))
		}
	}
	return violations
}

// Render writes a summary table.
func (r *Report) Render(w io.Writer, th Thresholds) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"metric", "value", "threshold"})
	table.SetBorder(false)
	table.SetColumnSeparator("|")

	threshold := func(set bool, s string) string {
		if !set {
			return "-"
		}
		return s
	}

	table.Append([]string{"requests", strconv.Itoa(r.Requests()), "-"})
	table.Append([]string{"real_keeper_calls", strconv.Itoa(r.RealCalls()),
		threshold(th.MaxRealCalls > 0, "count<="+strconv.Itoa(th.MaxRealCalls))})
	table.Append([]string{"limit_rejections", strconv.Itoa(r.LimitRejections()), "-"})
	table.Append([]string{"backend_errors", fmt.Sprintf("%.3f", r.ErrorRate()),
		threshold(th.MaxErrorRate > 0, fmt.Sprintf("rate<%.3f", th.MaxErrorRate))})
	table.Append([]string{"backend_latency p(95)", r.Percentile(95).String(),
		threshold(th.P95Latency > 0, "<"+th.P95Latency.String())})
	table.Render()
}
