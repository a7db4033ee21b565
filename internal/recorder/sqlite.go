package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"PriceScope/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the API can read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			label           TEXT,
			bars            INTEGER,
			start_date      TEXT,
			end_date        TEXT,
			average_price   REAL,
			std_deviation   REAL,
			fluctuation_pct REAL,
			last_close      REAL,
			last_ma         REAL,
			last_rsi        REAL,
			last_macd       REAL,
			last_signal     REAL,
			alert           INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON analysis_runs(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS fluctuation_alerts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      INTEGER REFERENCES analysis_runs(id),
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			percent     REAL,
			threshold   REAL,
			start_date  TEXT,
			end_date    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol_ts ON fluctuation_alerts(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func (r *SQLiteRecorder) RecordAnalysis(a *model.Analysis) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := a.ComputedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	alert := 0
	if a.Alert != nil {
		alert = 1
	}
	closes := a.Series.Closes()

	res, err := r.db.Exec(`INSERT INTO analysis_runs
		(timestamp, symbol, label, bars, start_date, end_date,
		 average_price, std_deviation, fluctuation_pct,
		 last_close, last_ma, last_rsi, last_macd, last_signal, alert)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), strings.ToUpper(a.Series.Symbol), a.Label, a.Series.Len(),
		a.Summary.Start.Format(dateLayout), a.Summary.End.Format(dateLayout),
		nullable(a.Summary.AveragePrice), nullable(a.StdDeviation), nullable(a.FluctuationPct),
		nullable(model.Last(closes)), nullable(model.Last(a.MovingAverage)), nullable(model.Last(a.RSI)),
		nullable(model.Last(a.MACD)), nullable(model.Last(a.SignalLine)), alert,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRecorder) RecordAlert(runID int64, alert *model.FluctuationAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fluctuation_alerts
		(run_id, timestamp, symbol, percent, threshold, start_date, end_date)
		VALUES (?,?,?,?,?,?,?)`,
		runID, time.Now().Unix(), strings.ToUpper(alert.Symbol), alert.Percent, alert.Threshold,
		alert.Start.Format(dateLayout), alert.End.Format(dateLayout),
	)
	return err
}

// RecentRuns returns the newest runs for a symbol, newest first.
func (r *SQLiteRecorder) RecentRuns(symbol string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, timestamp, symbol, label, bars, start_date, end_date,
		average_price, std_deviation, fluctuation_pct,
		last_close, last_ma, last_rsi, last_macd, last_signal, alert
		FROM analysis_runs WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                         RunRecord
			ts                          int64
			alert                       int
			avg, std, fluct             sql.NullFloat64
			last, ma, rsi, macd, signal sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Symbol, &rec.Label, &rec.Bars, &rec.StartDate, &rec.EndDate,
			&avg, &std, &fluct, &last, &ma, &rsi, &macd, &signal, &alert); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.ComputedAt = time.Unix(ts, 0)
		rec.AveragePrice, rec.StdDeviation, rec.FluctuationPct = orNaN(avg), orNaN(std), orNaN(fluct)
		rec.LastClose, rec.LastMA, rec.LastRSI = orNaN(last), orNaN(ma), orNaN(rsi)
		rec.LastMACD, rec.LastSignal = orNaN(macd), orNaN(signal)
		rec.Alert = alert == 1
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
