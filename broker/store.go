package broker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS headers (
	uid         TEXT PRIMARY KEY,
	scan_id     INTEGER NOT NULL,
	owner       TEXT NOT NULL,
	beamline_id TEXT NOT NULL,
	start_time  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_headers_scan_id ON headers (scan_id);
CREATE INDEX IF NOT EXISTS idx_headers_owner ON headers (owner);
CREATE INDEX IF NOT EXISTS idx_headers_beamline ON headers (beamline_id);

CREATE TABLE IF NOT EXISTS header_fields (
	uid   TEXT NOT NULL REFERENCES headers (uid) ON DELETE CASCADE,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (uid, key)
);

CREATE TABLE IF NOT EXISTS events (
	uid      TEXT NOT NULL REFERENCES headers (uid) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	time     TEXT NOT NULL,
	data_key TEXT NOT NULL,
	value    REAL NOT NULL,
	PRIMARY KEY (uid, data_key, seq)
);
`

// Store is a SQLite-backed run-header store.
type Store struct {
	db *sql.DB
}

// Open opens a run-header store at the provided path. The schema is
// created when absent.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert persists a run header and its custom fields.
func (s *Store) Insert(ctx context.Context, h *RunHeader) error {
	if err := h.Validate(); err != nil {
		return err
	}
	start := h.StartTime
	if start.IsZero() {
		start = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO headers (uid, scan_id, owner, beamline_id, start_time)
		 VALUES (?, ?, ?, ?, ?)`,
		h.UID, h.ScanID, h.Owner, h.BeamlineID, start.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert header %s: %w", h.UID, err)
	}

	for key, value := range h.Custom {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO header_fields (uid, key, value) VALUES (?, ?, ?)`,
			h.UID, key, value); err != nil {
			return fmt.Errorf("insert field %s.%s: %w", h.UID, key, err)
		}
	}

	return tx.Commit()
}

// Fetch retrieves a run header by UID.
func (s *Store) Fetch(ctx context.Context, uid string) (*RunHeader, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uid, scan_id, owner, beamline_id, start_time
		 FROM headers WHERE uid = ?`, uid)

	h, err := scanHeader(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
		}
		return nil, err
	}

	if err := s.loadFields(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Search returns the run headers matching the query, newest first.
func (s *Store) Search(ctx context.Context, q Query) ([]*RunHeader, error) {
	if q.isEmpty() {
		return nil, ErrNoQuery
	}

	var (
		where []string
		args  []interface{}
	)
	if q.UID != "" {
		where = append(where, "uid = ?")
		args = append(args, q.UID)
	}
	if q.ScanID != 0 {
		where = append(where, "scan_id = ?")
		args = append(args, q.ScanID)
	}
	if q.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, q.Owner)
	}
	if q.BeamlineID != "" {
		where = append(where, "beamline_id = ?")
		args = append(args, q.BeamlineID)
	}
	if !q.Since.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, q.Since.UTC().Format(timeFormat))
	}
	if !q.Until.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, q.Until.UTC().Format(timeFormat))
	}

	query := `SELECT uid, scan_id, owner, beamline_id, start_time FROM headers
		 WHERE ` + strings.Join(where, " AND ") + ` ORDER BY start_time DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search headers: %w", err)
	}
	defer rows.Close()

	var results []*RunHeader
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search headers: %w", err)
	}

	for _, h := range results {
		if err := s.loadFields(ctx, h); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// SearchUnique runs a query that must match exactly one header.
func (s *Store) SearchUnique(ctx context.Context, q Query) (*RunHeader, error) {
	results, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return results[0], nil
	default:
		return nil, fmt.Errorf("%w: %d matches", ErrNotUnique, len(results))
	}
}

// InsertEvents appends measurement events to a run.
func (s *Store) InsertEvents(ctx context.Context, uid string, events []Event) error {
	if _, err := s.Fetch(ctx, uid); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (uid, seq, time, data_key, value)
			 VALUES (?, ?, ?, ?, ?)`,
			uid, e.Seq, e.Time.UTC().Format(timeFormat), e.DataKey, e.Value); err != nil {
			return fmt.Errorf("insert event %s/%s/%d: %w", uid, e.DataKey, e.Seq, err)
		}
	}
	return tx.Commit()
}

// Listify transposes a run's events for one data key into a value
// list and a time list, in sequence order.
func (s *Store) Listify(ctx context.Context, uid, dataKey string) ([]float64, []time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, value FROM events
		 WHERE uid = ? AND data_key = ? ORDER BY seq`, uid, dataKey)
	if err != nil {
		return nil, nil, fmt.Errorf("listify %s/%s: %w", uid, dataKey, err)
	}
	defer rows.Close()

	var (
		values []float64
		times  []time.Time
	)
	for rows.Next() {
		var (
			raw   string
			value float64
		)
		if err := rows.Scan(&raw, &value); err != nil {
			return nil, nil, fmt.Errorf("listify %s/%s: %w", uid, dataKey, err)
		}
		ts, err := time.Parse(timeFormat, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("listify %s/%s: bad time %q: %w", uid, dataKey, raw, err)
		}
		values = append(values, value)
		times = append(times, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("listify %s/%s: %w", uid, dataKey, err)
	}
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrNoSuchKey, uid, dataKey)
	}
	return values, times, nil
}

// DataKeys returns the distinct data keys recorded for a run, sorted.
func (s *Store) DataKeys(ctx context.Context, uid string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT data_key FROM events WHERE uid = ? ORDER BY data_key`, uid)
	if err != nil {
		return nil, fmt.Errorf("data keys %s: %w", uid, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("data keys %s: %w", uid, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// scanner lets scanHeader work on both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHeader(row scanner) (*RunHeader, error) {
	var (
		h   RunHeader
		raw string
	)
	if err := row.Scan(&h.UID, &h.ScanID, &h.Owner, &h.BeamlineID, &raw); err != nil {
		return nil, err
	}
	start, err := time.Parse(timeFormat, raw)
	if err != nil {
		return nil, fmt.Errorf("header %s: bad start time %q: %w", h.UID, raw, err)
	}
	h.StartTime = start
	return &h, nil
}

func (s *Store) loadFields(ctx context.Context, h *RunHeader) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM header_fields WHERE uid = ?`, h.UID)
	if err != nil {
		return fmt.Errorf("load fields %s: %w", h.UID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("load fields %s: %w", h.UID, err)
		}
		if h.Custom == nil {
			h.Custom = make(map[string]string)
		}
		h.Custom[key] = value
	}
	return rows.Err()
}
