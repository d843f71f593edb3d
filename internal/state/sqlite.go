package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Writes arrive from the timer goroutine and the UI goroutine.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			deck_id TEXT NOT NULL,
			deck_path TEXT NOT NULL DEFAULT '',
			slides INTEGER NOT NULL DEFAULT 0,
			start_ts TEXT NOT NULL,
			end_ts TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			from_pos INTEGER NOT NULL DEFAULT 0,
			to_pos INTEGER NOT NULL DEFAULT 0,
			ts TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
		`CREATE INDEX IF NOT EXISTS transitions_session ON transitions(session_id);`,
		`CREATE TABLE IF NOT EXISTS last_position (
			deck_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			updated_ts TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) StartSession(ctx context.Context, session Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return errors.New("session id is required")
	}
	start := session.StartTS
	if start.IsZero() {
		start = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, deck_id, deck_path, slides, start_ts) VALUES(?,?,?,?,?)`,
		session.ID,
		strings.TrimSpace(session.DeckID),
		session.DeckPath,
		max(0, session.Slides),
		start.UTC().Format(timeLayout),
	)
	return err
}

func (s *SQLiteStore) RecordTransition(ctx context.Context, tr Transition) error {
	ts := tr.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions(session_id, kind, from_pos, to_pos, ts) VALUES(?,?,?,?,?)`,
		tr.SessionID,
		string(tr.Kind),
		max(0, tr.From),
		max(0, tr.To),
		ts.UTC().Format(timeLayout),
	)
	return err
}

func (s *SQLiteStore) EndSession(ctx context.Context, sessionID string, end time.Time) error {
	if end.IsZero() {
		end = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET end_ts = ? WHERE id = ? AND end_ts = ''`,
		end.UTC().Format(timeLayout), sessionID)
	return err
}

func (s *SQLiteStore) SaveLastPosition(ctx context.Context, deckID string, position int, at time.Time) error {
	deckID = strings.TrimSpace(deckID)
	if deckID == "" || position <= 0 {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_position(deck_id, position, updated_ts) VALUES(?, ?, ?)
		ON CONFLICT(deck_id) DO UPDATE SET
			position = excluded.position,
			updated_ts = excluded.updated_ts
	`, deckID, position, at.UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) LastPosition(ctx context.Context, deckID string) (int, bool, error) {
	var pos int
	row := s.db.QueryRowContext(ctx, `SELECT position FROM last_position WHERE deck_id = ?`, strings.TrimSpace(deckID))
	if err := row.Scan(&pos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return pos, true, nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'changed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'started' THEN 1 ELSE 0 END), 0)
		FROM transitions
	`)
	if err := row.Scan(&out.Transitions, &out.Autoplays); err != nil {
		return Summary{}, err
	}
	stats, err := s.GetDeckStats(ctx)
	if err != nil {
		return Summary{}, err
	}
	for _, d := range stats {
		out.Sessions += d.Sessions
		out.Viewing += d.Viewing
	}
	return out, nil
}

// GetDeckStats aggregates sessions per deck, most recently viewed first.
// Sessions that never ended do not count towards viewing time.
func (s *SQLiteStore) GetDeckStats(ctx context.Context) ([]DeckStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.deck_id, s.start_ts, s.end_ts,
			(SELECT COUNT(*) FROM transitions t WHERE t.session_id = s.id AND t.kind = 'changed')
		FROM sessions s
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDeck := map[string]*DeckStats{}
	for rows.Next() {
		var (
			deckID   string
			startRaw string
			endRaw   string
			changes  int
		)
		if err := rows.Scan(&deckID, &startRaw, &endRaw, &changes); err != nil {
			return nil, err
		}
		d, ok := byDeck[deckID]
		if !ok {
			d = &DeckStats{DeckID: deckID}
			byDeck[deckID] = d
		}
		d.Sessions++
		d.Transitions += changes
		start, err := time.Parse(timeLayout, startRaw)
		if err != nil {
			continue
		}
		if start.After(d.LastViewedTS) {
			d.LastViewedTS = start
		}
		if end, err := time.Parse(timeLayout, endRaw); err == nil && end.After(start) {
			d.Viewing += end.Sub(start)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DeckStats, 0, len(byDeck))
	for _, d := range byDeck {
		if pos, ok, err := s.LastPosition(ctx, d.DeckID); err != nil {
			return nil, err
		} else if ok {
			d.LastPosition = pos
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastViewedTS.Equal(out[j].LastViewedTS) {
			return out[i].DeckID < out[j].DeckID
		}
		return out[i].LastViewedTS.After(out[j].LastViewedTS)
	})
	return out, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

var _ Store = (*SQLiteStore)(nil)
