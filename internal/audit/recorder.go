package audit

import (
	"context"
	"errors"

	"github.com/Checker-Finance/secrets-gateway/pkg/model"
)

// Recorder receives one event per handled secret request.
type Recorder interface {
	RecordFetch(ctx context.Context, ev model.FetchEvent) error
}

// Multi fans an event out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) RecordFetch(ctx context.Context, ev model.FetchEvent) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordFetch(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
