// Package history persists completed predictions to SQLite so past runs can
// be fetched by id or listed newest-first.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/odds"
)

// API is the surface the HTTP layer depends on.
type API interface {
	Save(res odds.PredictionResult) error
	Get(requestID string) (odds.PredictionResult, bool, error)
	Recent(limit int) ([]Entry, error)
	Count() (int64, error)
	Close() error
}

// Entry is the summary row returned by Recent. The full result stays in the
// JSON column and comes back through Get.
type Entry struct {
	RequestID            string               `json:"request_id"`
	GoalSummary          string               `json:"goal_summary"`
	Domain               odds.Domain          `json:"domain"`
	ProbabilityProjected float64              `json:"probability_projected"`
	Category             odds.OutcomeCategory `json:"category"`
	Mode                 odds.ReportMode      `json:"mode"`
	CreatedAt            time.Time            `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	request_id            TEXT PRIMARY KEY,
	goal_summary          TEXT NOT NULL DEFAULT '',
	domain                TEXT NOT NULL DEFAULT 'other',
	probability_baseline  REAL NOT NULL DEFAULT 0,
	probability_projected REAL NOT NULL DEFAULT 0,
	category              TEXT NOT NULL DEFAULT '',
	mode                  TEXT NOT NULL DEFAULT '',
	created_at            TEXT NOT NULL,
	result                TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions (created_at DESC);
`

const defaultRecentLimit = 20
const maxRecentLimit = 200

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(res odds.PredictionResult) error {
	blob, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO predictions
		(request_id, goal_summary, domain, probability_baseline, probability_projected, category, mode, created_at, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RequestID,
		res.Goal.Summary,
		string(res.Goal.Domain),
		res.ProbabilityBaseline,
		res.ProbabilityProjected,
		string(res.Assessment.Category),
		string(res.Mode),
		timeToString(s.now()),
		string(blob),
	)
	return err
}

func (s *Store) Get(requestID string) (odds.PredictionResult, bool, error) {
	var blob string
	err := s.db.QueryRow("SELECT result FROM predictions WHERE request_id = ?", requestID).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return odds.PredictionResult{}, false, nil
		}
		return odds.PredictionResult{}, false, err
	}
	var res odds.PredictionResult
	if err := json.Unmarshal([]byte(blob), &res); err != nil {
		return odds.PredictionResult{}, false, fmt.Errorf("decode result: %w", err)
	}
	return res, true, nil
}

func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := s.db.Query(`SELECT request_id, goal_summary, domain, probability_projected, category, mode, created_at
		FROM predictions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.RequestID, &e.GoalSummary, &e.Domain, &e.ProbabilityProjected, &e.Category, &e.Mode, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM predictions").Scan(&n)
	return n, err
}

func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Ensure Store satisfies the API interface at compile time.
var _ API = (*Store)(nil)
