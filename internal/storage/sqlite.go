// Package storage is the SQLite adapter behind the record-store
// capabilities: event records, category routing and rate windows.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"eventsbot/internal/event"
	"eventsbot/internal/ratelimit"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open initializes the SQLite store, applying migrations.
func Open(cfg Config, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; this also makes the rate-window
	// read-modify-write serializable per key.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	tags, err := json.Marshal(sliceOrEmpty(ev.Tags))
	if err != nil {
		return event.Event{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events(name, category, tags, description, place, price, link, contact,
		                    image_ref, start_at, end_at, post_to_telegram, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ev.Name, ev.Category, string(tags), ev.Description, ev.Place, ev.Price, ev.Link, ev.Contact,
		ev.ImageRef, nullTime(ev.StartAt), nullTime(ev.EndAt), nullBool(ev.PostToTelegram),
		ev.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return event.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return event.Event{}, err
	}
	ev.ID = strconv.FormatInt(id, 10)
	return ev, nil
}

func (s *sqliteStore) ListUpcoming(ctx context.Context, from, until time.Time) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, tags, description, place, price, link, contact,
		        image_ref, start_at, end_at, post_to_telegram, created_at
		   FROM events
		  WHERE start_at IS NOT NULL AND start_at >= ? AND start_at < ?
		  ORDER BY start_at`,
		from.UTC().Format(time.RFC3339Nano), until.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (event.Event, error) {
	var (
		ev        event.Event
		id        int64
		tags      string
		startAt   sql.NullString
		endAt     sql.NullString
		post      sql.NullBool
		createdAt string
	)
	err := rows.Scan(&id, &ev.Name, &ev.Category, &tags, &ev.Description, &ev.Place, &ev.Price,
		&ev.Link, &ev.Contact, &ev.ImageRef, &startAt, &endAt, &post, &createdAt)
	if err != nil {
		return event.Event{}, err
	}
	ev.ID = strconv.FormatInt(id, 10)
	if err := json.Unmarshal([]byte(tags), &ev.Tags); err != nil {
		return event.Event{}, fmt.Errorf("storage: event %d tags: %w", id, err)
	}
	if ev.StartAt, err = parseNullTime(startAt); err != nil {
		return event.Event{}, err
	}
	if ev.EndAt, err = parseNullTime(endAt); err != nil {
		return event.Event{}, err
	}
	if post.Valid {
		v := post.Bool
		ev.PostToTelegram = &v
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		ev.CreatedAt = t
	}
	return ev, nil
}

func (s *sqliteStore) CategoryDestinations(ctx context.Context, name string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT destinations FROM categories WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tokens []string
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, fmt.Errorf("storage: category %q destinations: %w", name, err)
	}
	return tokens, nil
}

func (s *sqliteStore) UpsertCategory(ctx context.Context, name string, tokens []string) error {
	raw, err := json.Marshal(sliceOrEmpty(tokens))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO categories(name, destinations) VALUES(?,?)
		 ON CONFLICT(name) DO UPDATE SET destinations=excluded.destinations`,
		name, string(raw),
	)
	return err
}

// Update runs fn against the rate window for key inside a transaction. An
// error from fn rolls the transaction back, so a rejected hit never commits.
func (s *sqliteStore) Update(ctx context.Context, key string, fn func(ratelimit.Window) (ratelimit.Window, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var w ratelimit.Window
	var resetMS int64
	err = tx.QueryRowContext(ctx,
		`SELECT hits, reset_at FROM rate_windows WHERE sender = ?`, key).Scan(&w.Hits, &resetMS)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// absent: fn sees the zero window
	case err != nil:
		return err
	default:
		w.ResetAt = time.UnixMilli(resetMS)
	}

	next, err := fn(w)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rate_windows(sender, hits, reset_at) VALUES(?,?,?)
		 ON CONFLICT(sender) DO UPDATE SET hits=excluded.hits, reset_at=excluded.reset_at`,
		key, next.Hits, next.ResetAt.UnixMilli(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
