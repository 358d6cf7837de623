package recorder

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PostgresRecorder persists cycle history to PostgreSQL.
type PostgresRecorder struct {
	db *sqlx.DB
}

// NewPostgresRecorder connects to dsn and runs migrations.
func NewPostgresRecorder(dsn string) (*PostgresRecorder, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r := newPostgresRecorder(db)
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("component", "recorder").Msg("postgres recorder opened")
	return r, nil
}

func newPostgresRecorder(db *sqlx.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orb_cycles (
			id              BIGSERIAL PRIMARY KEY,
			run_id          TEXT NOT NULL,
			timestamp       BIGINT NOT NULL,
			duration_ms     BIGINT,
			session_date    DATE,
			outcome         TEXT,
			reason          TEXT,
			error           TEXT,
			or_high         DOUBLE PRECISION,
			or_low          DOUBLE PRECISION,
			strength        DOUBLE PRECISION,
			vol_avg         DOUBLE PRECISION,
			vol_base        DOUBLE PRECISION,
			ratio_avg       DOUBLE PRECISION,
			ratio_base      DOUBLE PRECISION,
			momentum_avg    DOUBLE PRECISION,
			allow_long      BOOLEAN,
			allow_short     BOOLEAN,
			long_breakouts  INTEGER,
			short_breakouts INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON orb_cycles(timestamp)`,
		`CREATE TABLE IF NOT EXISTS orb_signals (
			session_date DATE PRIMARY KEY,
			run_id       TEXT NOT NULL,
			direction    TEXT NOT NULL,
			entry_time   BIGINT NOT NULL,
			entry_price  DOUBLE PRECISION NOT NULL,
			stop_loss    DOUBLE PRECISION NOT NULL,
			exit_price   DOUBLE PRECISION,
			exit_time    BIGINT,
			exit_reason  TEXT
		)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const insertCycleSQL = `INSERT INTO orb_cycles
	(run_id, timestamp, duration_ms, session_date, outcome, reason, error,
	 or_high, or_low, strength, vol_avg, vol_base, ratio_avg, ratio_base, momentum_avg,
	 allow_long, allow_short, long_breakouts, short_breakouts)
	VALUES (:run_id, :timestamp, :duration_ms, :session_date, :outcome, :reason, :error,
	 :or_high, :or_low, :strength, :vol_avg, :vol_base, :ratio_avg, :ratio_base, :momentum_avg,
	 :allow_long, :allow_short, :long_breakouts, :short_breakouts)`

const upsertSignalSQL = `INSERT INTO orb_signals
	(session_date, run_id, direction, entry_time, entry_price, stop_loss, exit_price, exit_time, exit_reason)
	VALUES (:session_date, :run_id, :direction, :entry_time, :entry_price, :stop_loss, :exit_price, :exit_time, :exit_reason)
	ON CONFLICT (session_date) DO UPDATE SET
		run_id = EXCLUDED.run_id,
		exit_price = EXCLUDED.exit_price,
		exit_time = EXCLUDED.exit_time,
		exit_reason = EXCLUDED.exit_reason`

// RecordCycle appends the cycle row and upserts the day's signal, if any.
func (r *PostgresRecorder) RecordCycle(rec *CycleRecord) error {
	row, sig := toRows(rec)

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExec(insertCycleSQL, row); err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	if sig != nil {
		if _, err := tx.NamedExec(upsertSignalSQL, sig); err != nil {
			return fmt.Errorf("upsert signal: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
