package api

// QuotaExceededMessage is returned once the call counter is closed.
const QuotaExceededMessage = "Max real Keeper API call limit reached"

// SecretSummary is the caller-safe projection of a record.
type SecretSummary struct {
	UID   string `json:"uid"`
	Title string `json:"title,omitempty"`
}

// GetSecretResponse is the 200 body of GET /keeper/get-secret.
type GetSecretResponse struct {
	OK            bool          `json:"ok"`
	FromCache     bool          `json:"fromCache"`
	RealCallCount int64         `json:"realCallCount"`
	SecretSummary SecretSummary `json:"secretSummary"`
}

// QuotaExceededResponse is the 429 body.
type QuotaExceededResponse struct {
	OK            bool   `json:"ok"`
	Message       string `json:"message"`
	RealCallCount int64  `json:"realCallCount"`
	Limit         int64  `json:"limit"`
}

// ErrorResponse is the 500 body.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	RealCallCount int64             `json:"realCallCount"`
	Limit         int64             `json:"limit"`
	Remaining     int64             `json:"remaining"`
}
