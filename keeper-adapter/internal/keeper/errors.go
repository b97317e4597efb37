package keeper

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentifier is returned by the fetcher before any network activity.
	ErrMissingIdentifier = errors.New("missing record UID")

	// ErrFetchFailed wraps every secret-store failure: not found, network, auth, malformed.
	ErrFetchFailed = errors.New("secret fetch failed")

	// ErrConfiguration means no record UID is configured. It never touches the quota.
	ErrConfiguration = errors.New("KEEPER_SECRET_UID not set")

	// ErrBackend is the caller-facing error for a failed real call.
	ErrBackend = errors.New("backend error")
)

// QuotaExceededError is returned once the call counter has reached its limit.
type QuotaExceededError struct {
	Count int64
	Limit int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("max real Keeper API call limit reached (%d/%d)", e.Count, e.Limit)
}
