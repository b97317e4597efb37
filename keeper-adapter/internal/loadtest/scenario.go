// Package loadtest drives traffic against the secret endpoint and checks the
// outcome against latency, error-rate and real-call thresholds.
package loadtest

import (
	"fmt"
	"net/http"
	"time"
)

// Scenario describes one traffic shape.
type Scenario struct {
	Name string
	URL  string

	// VUs run concurrently. Each runs Iterations requests, or keeps going until
	// Duration elapses when Iterations is zero.
	VUs        int
	Iterations int
	Duration   time.Duration

	// Pace is the minimum gap between two requests of the same VU.
	Pace time.Duration

	// MaxDuration bounds the whole run.
	MaxDuration time.Duration

	// Accepted lists statuses that are not hard errors.
	Accepted []int

	// TrackRealCalls decodes bodies and counts 200 responses with ok=true.
	TrackRealCalls bool
}

// Thresholds fail the run when exceeded. Zero values disable a check.
type Thresholds struct {
	P95Latency   time.Duration
	MaxErrorRate float64
	MaxRealCalls int
}

// SecretScenario mirrors the default secret retrieval profile: 3 VUs × 2
// iterations with a 5s pace, accepting 200 and 429.
func SecretScenario(baseURL string) (Scenario, Thresholds) {
	return Scenario{
			Name:           "secret_retrieval",
			URL:            baseURL + "/keeper/get-secret",
			VUs:            3,
			Iterations:     2,
			Pace:           5 * time.Second,
			MaxDuration:    60 * time.Second,
			Accepted:       []int{http.StatusOK, http.StatusTooManyRequests},
			TrackRealCalls: true,
		}, Thresholds{
			P95Latency:   500 * time.Millisecond,
			MaxErrorRate: 0.05,
			MaxRealCalls: 10,
		}
}

// SmokeScenario is a single VU hitting url once a second for 10s, expecting 200.
func SmokeScenario(url string) (Scenario, Thresholds) {
	return Scenario{
		Name:        "smoke",
		URL:         url,
		VUs:         1,
		Duration:    10 * time.Second,
		Pace:        time.Second,
		MaxDuration: 10 * time.Second,
		Accepted:    []int{http.StatusOK},
	}, Thresholds{}
}

// Validate rejects scenarios that cannot run.
func (s Scenario) Validate() error {
	switch {
	case s.URL == "":
		return fmt.Errorf("scenario %q: url is required", s.Name)
	case s.VUs <= 0:
		return fmt.Errorf("scenario %q: vus must be positive", s.Name)
	case s.Iterations < 0:
		return fmt.Errorf("scenario %q: iterations must not be negative", s.Name)
	case s.Iterations == 0 && s.Duration <= 0 && s.MaxDuration <= 0:
		return fmt.Errorf("scenario %q: duration-driven scenario needs a duration", s.Name)
	}
	return nil
}

func (s Scenario) accepts(status int) bool {
	for _, a := range s.Accepted {
		if a == status {
			return true
		}
	}
	return false
}
