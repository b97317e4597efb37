package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/pkg/model"
)

// DBExecutor defines the minimal subset of pgxpool.Pool needed by the writer.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS keeper;
	CREATE TABLE IF NOT EXISTS keeper.fetch_audit (
		id_event        UUID PRIMARY KEY,
		s_service       TEXT        NOT NULL,
		s_source        TEXT        NOT NULL,
		s_backend       TEXT        NOT NULL,
		s_outcome       TEXT        NOT NULL,
		s_record_uid    TEXT,
		n_real_calls    BIGINT      NOT NULL,
		n_limit         BIGINT      NOT NULL,
		n_latency_ms    BIGINT      NOT NULL,
		s_error         TEXT,
		dt_event        TIMESTAMPTZ NOT NULL
	);
`

const insertQuery = `
	INSERT INTO keeper.fetch_audit (
		id_event,
		s_service,
		s_source,
		s_backend,
		s_outcome,
		s_record_uid,
		n_real_calls,
		n_limit,
		n_latency_ms,
		s_error,
		dt_event
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id_event) DO NOTHING;
`

// PGWriter appends fetch events to keeper.fetch_audit.
// The table is an audit trail only; the call counter is never read back from it.
type PGWriter struct {
	db     DBExecutor
	logger *zap.Logger
	source string
}

// NewPGWriter constructs a writer. source identifies the writing instance (e.g. hostname).
func NewPGWriter(db DBExecutor, logger *zap.Logger, source string) *PGWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGWriter{
		db:     db,
		logger: logger,
		source: source,
	}
}

// EnsureSchema creates the audit schema and table if missing.
func (w *PGWriter) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// RecordFetch implements Recorder.
func (w *PGWriter) RecordFetch(ctx context.Context, ev model.FetchEvent) error {
	_, err := w.db.Exec(ctx, insertQuery,
		ev.ID,            // id_event
		ev.Service,       // s_service
		w.source,         // s_source
		ev.Backend,       // s_backend
		ev.Outcome,       // s_outcome
		nullable(ev.RecordUID),
		ev.RealCallCount, // n_real_calls
		ev.Limit,         // n_limit
		ev.LatencyMs,     // n_latency_ms
		nullable(ev.Error),
		ev.Timestamp, // dt_event
	)
	if err != nil {
		w.logger.Error("audit.pg.insert_failed",
			zap.String("event_id", ev.ID.String()),
			zap.String("outcome", ev.Outcome),
			zap.Error(err))
		return fmt.Errorf("insert fetch audit: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
