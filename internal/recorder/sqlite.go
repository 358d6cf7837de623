package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists cycle history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("component", "recorder").Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orb_cycles (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			timestamp       INTEGER NOT NULL,
			duration_ms     INTEGER,
			session_date    TEXT,
			outcome         TEXT,
			reason          TEXT,
			error           TEXT,
			or_high         REAL,
			or_low          REAL,
			strength        REAL,
			vol_avg         REAL,
			vol_base        REAL,
			ratio_avg       REAL,
			ratio_base      REAL,
			momentum_avg    REAL,
			allow_long      INTEGER,
			allow_short     INTEGER,
			long_breakouts  INTEGER,
			short_breakouts INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON orb_cycles(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_date ON orb_cycles(session_date)`,

		`CREATE TABLE IF NOT EXISTS orb_signals (
			session_date TEXT PRIMARY KEY,
			run_id       TEXT NOT NULL,
			direction    TEXT NOT NULL,
			entry_time   INTEGER NOT NULL,
			entry_price  REAL NOT NULL,
			stop_loss    REAL NOT NULL,
			exit_price   REAL,
			exit_time    INTEGER,
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

// RecordCycle appends the cycle row and upserts the day's signal, if any.
func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, sig := toRows(rec)
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO orb_cycles
		(run_id, timestamp, duration_ms, session_date, outcome, reason, error,
		 or_high, or_low, strength, vol_avg, vol_base, ratio_avg, ratio_base, momentum_avg,
		 allow_long, allow_short, long_breakouts, short_breakouts)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.RunID, row.Timestamp, row.DurationMS, row.SessionDate, row.Outcome, row.Reason, row.Error,
		row.ORHigh, row.ORLow, row.Strength, row.VolAvg, row.VolBase, row.RatioAvg, row.RatioBase, row.MomentumAvg,
		row.AllowLong, row.AllowShort, row.LongBreakouts, row.ShortBreakouts,
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	if sig != nil {
		_, err = tx.Exec(`INSERT INTO orb_signals
			(session_date, run_id, direction, entry_time, entry_price, stop_loss, exit_price, exit_time, exit_reason)
			VALUES (?,?,?,?,?,?,?,?,?)
			ON CONFLICT(session_date) DO UPDATE SET
				run_id = excluded.run_id,
				exit_price = excluded.exit_price,
				exit_time = excluded.exit_time,
				exit_reason = excluded.exit_reason`,
			sig.SessionDate, sig.RunID, sig.Direction, sig.EntryTime, sig.EntryPrice,
			sig.StopLoss, sig.ExitPrice, sig.ExitTime, sig.ExitReason,
		)
		if err != nil {
			return fmt.Errorf("upsert signal: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Str("component", "recorder").Msg("closing sqlite recorder")
	return r.db.Close()
}
