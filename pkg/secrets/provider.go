package secrets

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned when the store answers but holds no record for the UID.
var ErrRecordNotFound = errors.New("record not found")

// Record is the normalized view of a secret returned by a Provider.
// Only identifying metadata is carried; secret material never leaves the provider.
type Record struct {
	UID   string
	Title string
	Type  string
}

// Provider defines a generic secrets manager interface.
// Concrete implementations (Keeper, AWS, etc.) can satisfy this.
type Provider interface {
	// GetRecord performs one round trip to the store and returns the record for uid.
	GetRecord(ctx context.Context, uid string) (*Record, error)

	// Name identifies the backend in logs, metrics and events.
	Name() string
}
