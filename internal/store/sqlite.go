package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS coord_cache (
	query TEXT PRIMARY KEY,
	lat   REAL,
	lng   REAL
);

CREATE TABLE IF NOT EXISTS neighborhood_cache (
	lat          REAL NOT NULL,
	lng          REAL NOT NULL,
	neighborhood TEXT NOT NULL,
	PRIMARY KEY (lat, lng)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	input       TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCoord looks up a cached resolution. A row with NULL lat/lng is a
// cached negative and returns (nil, true, nil).
func (s *SQLiteStore) GetCoord(ctx context.Context, query string) (*Coord, bool, error) {
	var lat, lng sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lng FROM coord_cache WHERE query = ?`, query,
	).Scan(&lat, &lng)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get coord")
	}
	if !lat.Valid || !lng.Valid {
		return nil, true, nil
	}
	return &Coord{Lat: lat.Float64, Lng: lng.Float64}, true, nil
}

func (s *SQLiteStore) SetCoord(ctx context.Context, query string, lat, lng float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO coord_cache (query, lat, lng) VALUES (?, ?, ?)`,
		query, lat, lng,
	)
	return eris.Wrap(err, "sqlite: set coord")
}

func (s *SQLiteStore) SetCoordMiss(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO coord_cache (query, lat, lng) VALUES (?, NULL, NULL)`,
		query,
	)
	return eris.Wrap(err, "sqlite: set coord miss")
}

func (s *SQLiteStore) GetNeighborhood(ctx context.Context, lat, lng float64) (string, bool, error) {
	var neighborhood string
	err := s.db.QueryRowContext(ctx,
		`SELECT neighborhood FROM neighborhood_cache WHERE lat = ? AND lng = ?`,
		lat, lng,
	).Scan(&neighborhood)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: get neighborhood")
	}
	return neighborhood, true, nil
}

func (s *SQLiteStore) SetNeighborhood(ctx context.Context, lat, lng float64, neighborhood string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO neighborhood_cache (lat, lng, neighborhood) VALUES (?, ?, ?)`,
		lat, lng, neighborhood,
	)
	return eris.Wrap(err, "sqlite: set neighborhood")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, input string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, status, started_at) VALUES (?, ?, ?, ?)`,
		id, input, string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Input:     input,
		Status:    RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusComplete), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusFailed), message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, status, summary, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var summaryJSON, errMsg sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Input, &r.Status, &summaryJSON, &errMsg, &r.StartedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if summaryJSON.Valid {
			r.Summary = &RunSummary{}
			if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal run summary")
			}
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
