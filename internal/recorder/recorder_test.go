package recorder

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBSentinel/internal/model"
)

func signalEvaluation(exit float64, reason model.ExitReason) *model.Evaluation {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	entry := date.Add(9*time.Hour + 45*time.Minute)
	return &model.Evaluation{
		Date:  date,
		Range: model.OpeningRange{High: 110, Low: 100, Strength: 0.6, Bars: 3},
		Breakouts: model.Breakouts{
			Long: []model.BreakoutEvent{{Side: model.Long, Time: entry, Price: 115}},
		},
		Regime: model.Regime{
			VolatilityAvg: 15, VolatilityBaseline: 20,
			RiskRatioAvg: 1.2, RiskRatioBaseline: 1.0,
			MomentumAvg: 0.3, AllowLong: true,
		},
		Outcome: model.Outcome{
			Kind:   model.OutcomeSignal,
			Reason: "Long at 115.00",
			Signal: &model.TradeSignal{
				Date: date, Direction: model.Long,
				EntryTime: entry, EntryPrice: 115, StopLoss: 100,
				ExitPrice: exit, ExitTime: entry.Add(time.Hour), ExitReason: reason,
			},
		},
	}
}

func TestToRows(t *testing.T) {
	ev := signalEvaluation(100, model.ExitStopLoss)
	ev.Range.Strength = math.NaN()

	row, sig := toRows(&CycleRecord{RunID: "r1", At: time.Unix(1000, 0), Duration: 1500 * time.Millisecond, Evaluation: ev})
	assert.Equal(t, "r1", row.RunID)
	assert.EqualValues(t, 1000, row.Timestamp)
	assert.EqualValues(t, 1500, row.DurationMS)
	assert.Equal(t, "2024-03-05", row.SessionDate.String)
	assert.Equal(t, "SIGNAL", row.Outcome.String)
	assert.False(t, row.Strength.Valid, "NaN is stored as NULL")
	assert.True(t, row.ORHigh.Valid)
	assert.False(t, row.Error.Valid)
	assert.Equal(t, 1, row.LongBreakouts)
	require.NotNil(t, sig)
	assert.Equal(t, "long", sig.Direction)
	assert.Equal(t, "STOP_LOSS", sig.ExitReason)

	row, sig = toRows(&CycleRecord{RunID: "r2", At: time.Unix(1000, 0), Err: errors.New("insufficient history")})
	assert.Equal(t, "insufficient history", row.Error.String)
	assert.False(t, row.SessionDate.Valid)
	assert.Nil(t, sig)
}

func TestSQLiteRecorder_RecordCycle(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "orb.db"))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordCycle(&CycleRecord{RunID: "a", At: time.Now(), Evaluation: signalEvaluation(112, model.ExitSessionClose)}))
	require.NoError(t, r.RecordCycle(&CycleRecord{RunID: "b", At: time.Now(), Evaluation: signalEvaluation(100, model.ExitStopLoss)}))
	require.NoError(t, r.RecordCycle(&CycleRecord{RunID: "c", At: time.Now(), Err: errors.New("fetch failed")}))

	var cycles int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM orb_cycles`).Scan(&cycles))
	assert.Equal(t, 3, cycles)

	var failed string
	require.NoError(t, r.db.QueryRow(`SELECT error FROM orb_cycles WHERE run_id = 'c'`).Scan(&failed))
	assert.Equal(t, "fetch failed", failed)

	var signals int
	var runID, reason string
	var exit float64
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM orb_signals`).Scan(&signals))
	require.NoError(t, r.db.QueryRow(`SELECT run_id, exit_price, exit_reason FROM orb_signals WHERE session_date = '2024-03-05'`).Scan(&runID, &exit, &reason))
	assert.Equal(t, 1, signals, "one signal row per session")
	assert.Equal(t, "b", runID)
	assert.Equal(t, 100.0, exit)
	assert.Equal(t, "STOP_LOSS", reason)
}

func TestSQLiteRecorder_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orb.db")
	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordCycle(&CycleRecord{RunID: "a", At: time.Now()}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()
	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM orb_cycles`).Scan(&n))
	assert.Equal(t, 1, n)
}

func newMockPostgres(t *testing.T) (*PostgresRecorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newPostgresRecorder(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresRecorder_Migrate(t *testing.T) {
	r, mock := newMockPostgres(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orb_cycles").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_cycles_ts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orb_signals").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.migrate())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_RecordCycle(t *testing.T) {
	r, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orb_cycles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO orb_signals").
		WithArgs("2024-03-05", "run-1", "long", sqlmock.AnyArg(), 115.0, 100.0, 100.0, sqlmock.AnyArg(), "STOP_LOSS").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := r.RecordCycle(&CycleRecord{RunID: "run-1", At: time.Now(), Evaluation: signalEvaluation(100, model.ExitStopLoss)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_RecordCycleWithoutSignal(t *testing.T) {
	r, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orb_cycles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, r.RecordCycle(&CycleRecord{RunID: "run-2", At: time.Now(), Err: errors.New("boom")}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_RollsBackOnFailure(t *testing.T) {
	r, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orb_cycles").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := r.RecordCycle(&CycleRecord{RunID: "run-3", At: time.Now()})
	assert.ErrorContains(t, err, "insert cycle: disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordCycle(&CycleRecord{}))
	assert.NoError(t, r.Close())
}
