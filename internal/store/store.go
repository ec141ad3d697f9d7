// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/mnemo/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for progress and session data.
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
		`CREATE TABLE IF NOT EXISTS progress (
			game TEXT PRIMARY KEY,
			last_accuracy REAL NOT NULL,
			last_avg_response_ms REAL NOT NULL,
			sessions_today INTEGER NOT NULL,
			last_session_date TEXT NOT NULL,
			total_sessions INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			game TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			trials INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			confusable INTEGER NOT NULL,
			miss INTEGER NOT NULL,
			avg_latency_ms INTEGER NOT NULL,
			ended_early INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_rounds (
			session_id INTEGER NOT NULL,
			round_index INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			trials INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			confusable INTEGER NOT NULL,
			avg_latency_ms INTEGER NOT NULL,
			PRIMARY KEY (session_id, round_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_rounds_index ON session_rounds(round_index);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadProgress returns the persisted per-game progress. A missing record
// is not an error; all fields come back as their zero values.
func (s *Store) LoadProgress(ctx context.Context, game model.Game) (model.Progress, error) {
	p := model.Progress{Game: game}
	err := s.db.QueryRowContext(ctx,
		`SELECT last_accuracy, last_avg_response_ms, sessions_today, last_session_date, total_sessions
		 FROM progress WHERE game = ?`, string(game)).
		Scan(&p.LastAccuracy, &p.LastAvgResponseMs, &p.SessionsToday, &p.LastSessionDate, &p.TotalSessions)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return model.Progress{}, err
	}
	return p, nil
}

// BumpProgress applies the session-start date bookkeeping: the same
// calendar date increments the same-day counter, a new date resets it to 1,
// and the lifetime counter always increments. It returns the updated record.
func (s *Store) BumpProgress(ctx context.Context, game model.Game, now time.Time) (model.Progress, error) {
	p, err := s.LoadProgress(ctx, game)
	if err != nil {
		return model.Progress{}, err
	}
	today := now.Format("2006-01-02")
	if p.LastSessionDate == today {
		p.SessionsToday++
	} else {
		p.SessionsToday = 1
	}
	p.LastSessionDate = today
	p.TotalSessions++
	if err := s.saveProgress(ctx, p); err != nil {
		return model.Progress{}, err
	}
	return p, nil
}

// SaveOutcome records the last session's accuracy and mean response time.
func (s *Store) SaveOutcome(ctx context.Context, game model.Game, accuracy, avgResponseMs float64) error {
	p, err := s.LoadProgress(ctx, game)
	if err != nil {
		return err
	}
	p.LastAccuracy = accuracy
	p.LastAvgResponseMs = avgResponseMs
	return s.saveProgress(ctx, p)
}

func (s *Store) saveProgress(ctx context.Context, p model.Progress) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (game, last_accuracy, last_avg_response_ms, sessions_today, last_session_date, total_sessions)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game) DO UPDATE SET
			last_accuracy = excluded.last_accuracy,
			last_avg_response_ms = excluded.last_avg_response_ms,
			sessions_today = excluded.sessions_today,
			last_session_date = excluded.last_session_date,
			total_sessions = excluded.total_sessions`,
		string(p.Game), p.LastAccuracy, p.LastAvgResponseMs, p.SessionsToday, p.LastSessionDate, p.TotalSessions)
	return err
}

// InsertSession stores a completed session and its per-round records.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord, rounds []model.RoundRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	endedEarly := 0
	if rec.EndedEarly {
		endedEarly = 1
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, game, rounds, trials, correct, confusable, miss, avg_latency_ms, ended_early)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		string(rec.Game),
		rec.Rounds,
		rec.Trials,
		rec.Correct,
		rec.Confusable,
		rec.Miss,
		rec.AvgLatencyMs,
		endedEarly,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rounds) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO session_rounds (session_id, round_index, strategy, trials, correct, incorrect, confusable, avg_latency_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, r := range rounds {
			if _, err := stmt.ExecContext(ctx, id, r.Index, r.Strategy, r.Trials, r.Correct, r.Incorrect, r.Confusable, r.AvgLatencyMs); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns session aggregates filtered by stats config.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Game != "" {
		clauses = append(clauses, "game = ?")
		args = append(args, cfg.Game)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, game, rounds, correct, confusable, miss, avg_latency_ms, ended_early
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
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

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var startedAt, endedAt, game string
		var confusable, miss, endedEarly int
		if err := rows.Scan(&agg.SessionID, &startedAt, &endedAt, &game, &agg.Rounds, &agg.Correct, &confusable, &miss, &agg.AvgLatencyMs, &endedEarly); err != nil {
			return nil, err
		}
		started, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		ended, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = ended
		agg.DurationMs = ended.Sub(started).Milliseconds()
		agg.Game = model.Game(game)
		agg.Confusable = confusable
		agg.Incorrect = confusable + miss
		agg.EndedEarly = endedEarly != 0
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListRoundAggregates aggregates round results by round index across the
// given sessions.
func (s *Store) ListRoundAggregates(ctx context.Context, sessionIDs []int64) ([]model.RoundAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT round_index, COUNT(*) AS plays, SUM(correct) AS correct, SUM(incorrect) AS incorrect,
		SUM(confusable) AS confusable, SUM(avg_latency_ms * trials) AS latency_sum_ms
		FROM session_rounds
		WHERE session_id IN (%s)
		GROUP BY round_index
		ORDER BY round_index ASC`, strings.Join(placeholders, ","))
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

	var result []model.RoundAggregate
	for rows.Next() {
		var agg model.RoundAggregate
		if err := rows.Scan(&agg.Index, &agg.Plays, &agg.Correct, &agg.Incorrect, &agg.Confusable, &agg.LatencySumMs); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
