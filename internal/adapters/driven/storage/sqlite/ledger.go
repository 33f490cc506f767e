package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/deckhand-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.Ledger = (*Ledger)(nil)

// Ledger is the SQLite-backed processing-state store.
type Ledger struct {
	db   *sql.DB
	path string
}

// NewLedger creates a SQLite ledger under the specified data directory.
// If dataDir is empty, defaults to ~/.deckhand/data.
func NewLedger(dataDir string) (*Ledger, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".deckhand", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ledger.db")

	// WAL mode so concurrent stage workers don't block readers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	l := &Ledger{db: db, path: dbPath}

	if err := l.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// migrate runs all pending migrations.
func (l *Ledger) migrate(fsys embed.FS) error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := l.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := l.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := l.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

const recordColumns = `remote_id, name, content_hash, modified_at, size, status,
	retry_count, last_error, started_at, finished_at, slide_count, duration_ms`

// Get retrieves the record for a deck.
func (l *Ledger) Get(ctx context.Context, remoteID string) (*domain.Record, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM records WHERE remote_id = ?
	`, remoteID)

	return scanRecordRow(row)
}

// Upsert atomically stores or replaces a record. A single statement,
// so concurrent workers never observe a half-updated row.
func (l *Ledger) Upsert(ctx context.Context, rec *domain.Record) error {
	if rec == nil || rec.RemoteID == "" {
		return domain.ErrInvalidInput
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, rec.Status)
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(remote_id) DO UPDATE SET
			name = excluded.name,
			content_hash = excluded.content_hash,
			modified_at = excluded.modified_at,
			size = excluded.size,
			status = excluded.status,
			retry_count = excluded.retry_count,
			last_error = excluded.last_error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			slide_count = excluded.slide_count,
			duration_ms = excluded.duration_ms
	`, rec.RemoteID, rec.Name, rec.ContentHash, nullTime(rec.ModifiedAt), rec.Size,
		string(rec.Status), rec.RetryCount, rec.LastError,
		nullTime(rec.StartedAt), nullTime(rec.FinishedAt),
		rec.SlideCount, rec.Duration.Milliseconds())

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// List returns all records.
func (l *Ledger) List(ctx context.Context) ([]domain.Record, error) {
	return l.query(ctx, `SELECT `+recordColumns+` FROM records ORDER BY remote_id`)
}

// ListByStatus returns records holding the given status.
func (l *Ledger) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Record, error) {
	return l.query(ctx, `
		SELECT `+recordColumns+` FROM records WHERE status = ? ORDER BY remote_id
	`, string(status))
}

// ListFailed returns all failed records.
func (l *Ledger) ListFailed(ctx context.Context) ([]domain.Record, error) {
	return l.ListByStatus(ctx, domain.StatusFailed)
}

// ResetFailed moves every failed record back to pending. The content
// hash is cleared so the retry reprocesses the deck instead of
// short-circuiting on the hash of a failed attempt.
func (l *Ledger) ResetFailed(ctx context.Context) (int, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE records
		SET status = ?, retry_count = 0, last_error = '', content_hash = ''
		WHERE status = ?
	`, string(domain.StatusPending), string(domain.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("resetting failed records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting reset records: %w", err)
	}
	return int(n), nil
}

// Delete removes a record; its events go with it via cascade.
func (l *Ledger) Delete(ctx context.Context, remoteID string) error {
	_, err := l.db.ExecContext(ctx, "DELETE FROM records WHERE remote_id = ?", remoteID)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// AddEvent appends an audit-log entry for a deck.
func (l *Ledger) AddEvent(ctx context.Context, remoteID, stage, message string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO events (remote_id, stage, message) VALUES (?, ?, ?)
	`, remoteID, stage, message)
	if err != nil {
		return fmt.Errorf("adding event: %w", err)
	}
	return nil
}

// ListEvents returns the audit log for a deck, oldest first.
func (l *Ledger) ListEvents(ctx context.Context, remoteID string) ([]domain.Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, remote_id, stage, message, created_at
		FROM events WHERE remote_id = ?
		ORDER BY id
	`, remoteID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.Event
		var createdAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.RemoteID, &e.Stage, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if createdAt.Valid {
			e.CreatedAt = createdAt.Time
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// Statistics returns aggregate counts and durations.
func (l *Ledger) Statistics(ctx context.Context) (*domain.LedgerStats, error) {
	stats := &domain.LedgerStats{ByStatus: make(map[domain.Status]int)}

	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("querying status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		stats.ByStatus[domain.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	row := l.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(slide_count), 0), COALESCE(AVG(duration_ms), 0)
		FROM records WHERE status = ?
	`, string(domain.StatusSuccess))

	var avgMs float64
	if err := row.Scan(&stats.TotalSlides, &avgMs); err != nil {
		return nil, fmt.Errorf("scanning aggregates: %w", err)
	}
	stats.AvgDuration = time.Duration(avgMs) * time.Millisecond

	return stats, nil
}

// query runs a record SELECT and scans the result set.
func (l *Ledger) query(ctx context.Context, q string, args ...any) ([]domain.Record, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// scanRecordRow scans a record from *sql.Row.
func scanRecordRow(row *sql.Row) (*domain.Record, error) {
	rec, err := scanInto(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return rec, nil
}

// scanRecord scans a record from *sql.Rows.
func scanRecord(rows *sql.Rows) (*domain.Record, error) {
	rec, err := scanInto(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return rec, nil
}

// scanInto scans one record through the provided scan function.
func scanInto(scan func(...any) error) (*domain.Record, error) {
	var rec domain.Record
	var status string
	var modifiedAt, startedAt, finishedAt sql.NullTime
	var durationMs int64

	if err := scan(&rec.RemoteID, &rec.Name, &rec.ContentHash, &modifiedAt, &rec.Size,
		&status, &rec.RetryCount, &rec.LastError, &startedAt, &finishedAt,
		&rec.SlideCount, &durationMs); err != nil {
		return nil, err
	}

	rec.Status = domain.Status(status)
	if modifiedAt.Valid {
		rec.ModifiedAt = modifiedAt.Time
	}
	if startedAt.Valid {
		rec.StartedAt = startedAt.Time
	}
	if finishedAt.Valid {
		rec.FinishedAt = finishedAt.Time
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond

	return &rec, nil
}
