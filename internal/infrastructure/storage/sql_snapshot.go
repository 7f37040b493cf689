package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS candidates (
    id       TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    payload  TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS scheduler_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
}

// SQLSnapshot persists the snapshot into a sqlite or postgres database.
type SQLSnapshot struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.SnapshotStore = (*SQLSnapshot)(nil)

// OpenSQL connects with driver "sqlite" or "postgres" and creates the tables.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLSnapshot, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	store, err := NewSQLSnapshot(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLSnapshot wraps an open database.
func NewSQLSnapshot(db *sql.DB, driver string) (*SQLSnapshot, error) {
	builder := sq.StatementBuilder
	switch driver {
	case "postgres":
		builder = builder.PlaceholderFormat(sq.Dollar)
	case "sqlite":
		builder = builder.PlaceholderFormat(sq.Question)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	return &SQLSnapshot{db: db, builder: builder}, nil
}

// Migrate creates the tables when missing.
func (s *SQLSnapshot) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLSnapshot) Close() error {
	return s.db.Close()
}

// Load reads records in stored order and the scheduler state.
func (s *SQLSnapshot) Load(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	query, args, err := s.builder.Select("id", "payload").From("candidates").OrderBy("position").ToSql()
	if err != nil {
		return snap, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return snap, fmt.Errorf("query candidates: %w", err)
	}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			_ = rows.Close()
			return snap, fmt.Errorf("scan candidate: %w", err)
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			_ = rows.Close()
			return snap, fmt.Errorf("decode candidate %s: %w", id, err)
		}
		rec, err := recordFromJSON(id, raw)
		if err != nil {
			_ = rows.Close()
			return snap, err
		}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return snap, fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return snap, fmt.Errorf("close rows: %w", err)
	}

	state, err := s.state(ctx)
	if err != nil {
		return snap, err
	}
	snap.NextPost = state[keyNextPost]
	snap.LastPostDay, _ = strconv.Atoi(state[keyLastPostDay])
	snap.NoSubAlertDay, _ = strconv.Atoi(state[keyNoSubAlert])
	return snap, nil
}

func (s *SQLSnapshot) state(ctx context.Context) (map[string]string, error) {
	query, args, err := s.builder.Select("key", "value").From("scheduler_state").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build state select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	defer rows.Close()

	state := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		state[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state iteration: %w", err)
	}
	return state, nil
}

// Save replaces the stored snapshot in one transaction.
func (s *SQLSnapshot) Save(ctx context.Context, snap domain.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.exec(ctx, tx, s.builder.Delete("candidates")); err != nil {
		return err
	}

	if len(snap.Records) > 0 {
		insert := s.builder.Insert("candidates").Columns("id", "position", "payload")
		for i, rec := range snap.Records {
			payload, mErr := json.Marshal(recordToJSON(rec))
			if mErr != nil {
				return fmt.Errorf("encode candidate %s: %w", rec.ID, mErr)
			}
			insert = insert.Values(rec.ID, i, string(payload))
		}
		if err = s.exec(ctx, tx, insert); err != nil {
			return err
		}
	}

	state := map[string]string{
		keyNextPost:    snap.NextPost,
		keyLastPostDay: strconv.Itoa(snap.LastPostDay),
		keyNoSubAlert:  strconv.Itoa(snap.NoSubAlertDay),
	}
	for _, key := range []string{keyNextPost, keyLastPostDay, keyNoSubAlert} {
		upsert := s.builder.Insert("scheduler_state").
			Columns("key", "value").
			Values(key, state[key]).
			Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value")
		if err = s.exec(ctx, tx, upsert); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLSnapshot) exec(ctx context.Context, tx *sql.Tx, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec %q: %w", query, err)
	}
	return nil
}
