package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT    NOT NULL,
			start_date  TEXT,
			end_date    TEXT,
			bars        INTEGER,
			last_close  REAL,
			indicators  TEXT,
			analyst     TEXT,
			verdict     TEXT,
			response    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_symbol_ts ON analyses(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(rec *model.AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := r.db.Exec(`INSERT INTO analyses
		(timestamp, symbol, start_date, end_date, bars, last_close, indicators, analyst, verdict, response)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.CreatedAt.UnixMilli(), rec.Symbol,
		rec.Start.Format(time.DateOnly), rec.End.Format(time.DateOnly),
		rec.Bars, rec.LastClose, strings.Join(rec.Indicators, ","),
		rec.Analyst, string(rec.Verdict), rec.Response,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

func (r *SQLiteRecorder) RecentAnalyses(symbol string, limit int) ([]model.AnalysisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, timestamp, symbol, start_date, end_date, bars, last_close,
		indicators, analyst, verdict, response FROM analyses`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, strings.ToUpper(symbol))
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []model.AnalysisRecord
	for rows.Next() {
		var (
			rec                    model.AnalysisRecord
			ts                     int64
			start, end, indicators string
			verdict                string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Symbol, &start, &end, &rec.Bars, &rec.LastClose,
			&indicators, &rec.Analyst, &verdict, &rec.Response); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(ts)
		rec.Start, _ = time.Parse(time.DateOnly, start)
		rec.End, _ = time.Parse(time.DateOnly, end)
		if indicators != "" {
			rec.Indicators = strings.Split(indicators, ",")
		}
		rec.Verdict = model.Verdict(verdict)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
