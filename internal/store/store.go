// Package store is the persistence gateway: idempotent upserts of transcripts
// and analyses in SQLite, keyed by the vendor call key.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width UTC so MAX() over the column compares correctly.
const timeFormat = "2006-01-02T15:04:05Z"

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    vendor_call_key  TEXT PRIMARY KEY,
    call_start       TEXT,
    call_end         TEXT,
    duration_seconds INTEGER,
    disposition      TEXT,
    department       TEXT,
    status           TEXT,
    agent_name       TEXT,
    agent_role       TEXT,
    agent_profile    TEXT,
    agent_email      TEXT,
    number_of_holds  INTEGER,
    hold_duration    INTEGER,
    messages_json    TEXT NOT NULL DEFAULT '[]',
    imported_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_call_start ON transcripts(call_start);
CREATE INDEX IF NOT EXISTS idx_transcripts_agent_name ON transcripts(agent_name);

CREATE TABLE IF NOT EXISTS analyses (
    vendor_call_key           TEXT PRIMARY KEY REFERENCES transcripts(vendor_call_key),
    agent_sentiment           TEXT NOT NULL,
    agent_sentiment_score     REAL NOT NULL,
    agent_sentiment_reason    TEXT NOT NULL DEFAULT '',
    customer_sentiment        TEXT NOT NULL,
    customer_sentiment_score  REAL NOT NULL,
    customer_sentiment_reason TEXT NOT NULL DEFAULT '',
    professionalism_score     REAL NOT NULL DEFAULT 0,
    ai_discovered_topic       TEXT NOT NULL DEFAULT '',
    subcategory               TEXT NOT NULL DEFAULT '',
    topic_confidence          REAL NOT NULL DEFAULT 0,
    key_issues_json           TEXT NOT NULL DEFAULT '[]',
    agent_strengths_json      TEXT NOT NULL DEFAULT '[]',
    resolution                TEXT NOT NULL DEFAULT '',
    tags_json                 TEXT NOT NULL DEFAULT '[]',
    caused_frustration        INTEGER NOT NULL DEFAULT 0,
    model                     TEXT NOT NULL DEFAULT '',
    analyzed_at               TEXT NOT NULL
);
`

// Store wraps the SQLite handle. Every write is a single-row upsert keyed by
// vendor_call_key, so concurrent writers are safe without extra locking.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the database, applies pragmas, and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LatestCallStart returns the most recent stored call_start, or ok=false when
// no transcript carries one yet.
func (s *Store) LatestCallStart(ctx context.Context) (time.Time, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(call_start) FROM transcripts`).Scan(&raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest call start: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(timeFormat, raw.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse stored call start %q: %w", raw.String, err)
	}
	return t, true, nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Truncate(time.Second).Format(timeFormat)
}

func scanString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func scanInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func scanTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored timestamp %q: %w", v.String, err)
	}
	return &t, nil
}
