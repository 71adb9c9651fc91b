// Package decisiondb durably checkpoints the adaptive learner's EPL
// decision history so a restart can warm the per-source accuracy EMA from
// the last window of feedback rather than starting neutral.
package decisiondb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sawpanic/signalcore/internal/uscp"
)

// decisionRow is the row shape behind the decision_history table.
type decisionRow struct {
	SignalID         string    `db:"signal_id"`
	SignalSource     string    `db:"signal_source"`
	EPLPassed        bool      `db:"epl_passed"`
	FinalPerformance float64   `db:"final_performance"`
	Timestamp        time.Time `db:"decided_at"`
}

// Repository persists learner decision history through sqlx+lib/pq.
type Repository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRepository opens a Postgres connection, migrates the schema, and
// returns a Repository bound to it. dsn is a standard libpq connection
// string.
func NewRepository(dsn string, timeout time.Duration) (*Repository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to decision history database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("migrating decision history schema: %w", err)
	}
	return &Repository{db: db, timeout: timeout}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS decision_history (
	id                BIGSERIAL PRIMARY KEY,
	signal_id         TEXT NOT NULL,
	signal_source     TEXT NOT NULL,
	epl_passed        BOOLEAN NOT NULL,
	final_performance DOUBLE PRECISION NOT NULL,
	decided_at        TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS decision_history_source_idx ON decision_history (signal_source, decided_at DESC);
`

// Append records a batch of EPL decisions.
func (r *Repository) Append(ctx context.Context, decisions []uscp.EPLDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning decision history transaction: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO decision_history (signal_id, signal_source, epl_passed, final_performance, decided_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, d := range decisions {
		if _, err := tx.ExecContext(ctx, insert, d.SignalID, d.SignalSource, d.EPLPassed, d.FinalPerformance, d.Timestamp); err != nil {
			return fmt.Errorf("inserting decision for %s: %w", d.SignalID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing decision history batch: %w", err)
	}
	return nil
}

// RecentBySource loads the most recent n decisions for a source, used to
// warm the learner's accuracy EMA on restart.
func (r *Repository) RecentBySource(ctx context.Context, source string, n int) ([]uscp.EPLDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	const query = `
		SELECT signal_id, signal_source, epl_passed, final_performance, decided_at
		FROM decision_history
		WHERE signal_source = $1
		ORDER BY decided_at DESC
		LIMIT $2`

	var rows []decisionRow
	if err := r.db.SelectContext(ctx, &rows, query, source, n); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading recent decisions for %s: %w", source, err)
	}

	out := make([]uscp.EPLDecision, len(rows))
	for i, row := range rows {
		out[i] = uscp.EPLDecision{
			SignalID:         row.SignalID,
			SignalSource:     row.SignalSource,
			EPLPassed:        row.EPLPassed,
			FinalPerformance: row.FinalPerformance,
			Timestamp:        row.Timestamp,
		}
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}
