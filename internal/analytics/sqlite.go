package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/mailbox"
)

// SQLiteStore answers count queries from a local messages table. Timestamps
// are stored as unix milliseconds; sender matching is case-insensitive.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ API = (*SQLiteStore)(nil)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY
			);
			CREATE TABLE IF NOT EXISTS messages (
				id          TEXT PRIMARY KEY,
				from_email  TEXT NOT NULL COLLATE NOCASE,
				received_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_messages_from_received
				ON messages (from_email, received_at);
			INSERT INTO schema_version (version) VALUES (1);`,
	},
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to an in-memory database is a separate database.
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Backend implements Named.
func (s *SQLiteStore) Backend() string {
	return instrumentation.BackendSQLite
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Record stores a received message. Re-recording the same message ID replaces it.
func (s *SQLiteStore) Record(ctx context.Context, messageID, sender string, receivedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO messages (id, from_email, received_at) VALUES (?, ?, ?)",
		messageID, mailbox.NormalizeAddress(sender), receivedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording message %s: %w", messageID, err)
	}
	return nil
}

type sqliteBucket struct {
	Index int   `db:"idx"`
	Count int64 `db:"count"`
}

// QueryCounts counts messages per bucket with a single query: the buckets
// are a VALUES CTE left-joined against messages.
func (s *SQLiteStore) QueryCounts(ctx context.Context, q CountQuery) ([]BucketCount, error) {
	query, args := buildCountQuery(q)

	var rows []sqliteBucket
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying counts: %w", err)
	}

	counts := make([]BucketCount, 0, len(rows))
	for _, r := range rows {
		if r.Index < 0 || r.Index >= len(q.Starts) {
			continue
		}
		counts = append(counts, BucketCount{Start: q.Starts[r.Index], Count: r.Count})
	}
	return counts, nil
}

func buildCountQuery(q CountQuery) (string, []interface{}) {
	edges := q.upperEdges()

	values := make([]string, len(q.Starts))
	args := make([]interface{}, 0, len(q.Starts)*3+1)
	for i, start := range q.Starts {
		values[i] = "(?, ?, ?)"
		args = append(args, i, start.UnixMilli(), edges[i].UnixMilli())
	}
	args = append(args, q.Sender)

	query := `
		WITH buckets(idx, start_ms, end_ms) AS (VALUES ` + strings.Join(values, ", ") + `)
		SELECT b.idx AS idx, COUNT(m.id) AS count
		FROM buckets b
		LEFT JOIN messages m
			ON m.from_email = ?
			AND m.received_at >= b.start_ms
			AND m.received_at < b.end_ms
		GROUP BY b.idx
		ORDER BY b.idx`

	return query, args
}
