package model

import (
	"time"

	"github.com/google/uuid"
)

// Fetch outcomes reported by the quota-gated endpoint.
const (
	OutcomeSuccess       = "success"
	OutcomeBackendError  = "backend_error"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeConfigError   = "config_error"
)

// FetchEvent describes one handled secret request. RecordUID is always masked.
type FetchEvent struct {
	ID            uuid.UUID `json:"id"`
	Service       string    `json:"service"`
	Backend       string    `json:"backend"`
	Outcome       string    `json:"outcome"`
	RecordUID     string    `json:"record_uid,omitempty"`
	RealCallCount int64     `json:"real_call_count"`
	Limit         int64     `json:"limit"`
	LatencyMs     int64     `json:"latency_ms"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// RealCall reports whether the event consumed quota.
func (e FetchEvent) RealCall() bool {
	return e.Outcome == OutcomeSuccess || e.Outcome == OutcomeBackendError
}
