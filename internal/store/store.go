// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/romatype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// PrefAudio is the preference key for sound feedback.
const PrefAudio = "audio"

// DefaultAudio is the sound setting before the user toggles it.
const DefaultAudio = false

// Store wraps SQLite access for results and preferences.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			successes INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			phrases INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_ended_at ON results(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertResult stores a finished session.
func (s *Store) InsertResult(ctx context.Context, rec model.ResultRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (started_at, ended_at, difficulty, elapsed_ms, successes, errors, phrases)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
		rec.Difficulty.String(),
		int64(math.Round(rec.ElapsedSeconds*1000)),
		rec.Successes,
		rec.Errors,
		rec.Phrases,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListResults returns stored results in ascending end time.
func (s *Store) ListResults(ctx context.Context, filter model.HistoryFilter) ([]model.StoredResult, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, filter.Difficulty.String())
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, difficulty, elapsed_ms, successes, errors, phrases
		FROM results
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.StoredResult
	for rows.Next() {
		var r model.StoredResult
		var startedAt, endedAt, difficulty string
		var elapsedMs int64
		if err := rows.Scan(&r.ID, &startedAt, &endedAt, &difficulty, &elapsedMs, &r.Successes, &r.Errors, &r.Phrases); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		r.Difficulty = model.Difficulty(difficulty)
		r.ElapsedSeconds = float64(elapsedMs) / 1000
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(results) > filter.Last {
		results = results[len(results)-filter.Last:]
	}
	return results, nil
}

// formatTime stores instants in UTC so text order matches time order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Audio reports the saved sound preference, DefaultAudio when unset.
func (s *Store) Audio(ctx context.Context) (bool, error) {
	return s.GetBool(ctx, PrefAudio, DefaultAudio)
}

// GetBool reads a boolean preference, returning fallback when unset.
func (s *Store) GetBool(ctx context.Context, key string, fallback bool) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid preference %s=%q: %w", key, value, err)
	}
	return parsed, nil
}

// SetBool writes a boolean preference.
func (s *Store) SetBool(ctx context.Context, key string, value bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, strconv.FormatBool(value))
	return err
}
