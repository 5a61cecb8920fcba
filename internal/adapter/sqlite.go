package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// recordChunkSize is how many records one iteration query fetches.
const recordChunkSize = 512

// unixNano restores a timestamp stored as nanoseconds since the Unix
// epoch. Sub-second resolution survives the round-trip, which the
// timestamp comparison in the verification pass depends on.
func unixNano(n int64) time.Time {
	return time.Unix(0, n)
}

// SQLiteLedger persists records inside a SQLite database. Mutations go
// through a long-lived transaction that Commit cycles, which gives the
// reconciler its durability checkpoints.
type SQLiteLedger struct {
	db   *sql.DB
	tx   *sql.Tx
	path string
}

// OpenLedger opens (or initializes) the ledger database at path.
// Initialization creates an empty record set.
func OpenLedger(path string) (*SQLiteLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	// The ledger is mutated from a single goroutine through one pinned
	// transaction; a second pooled connection would only deadlock on
	// the database lock.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS records (
        path TEXT PRIMARY KEY,
        digest BLOB NOT NULL,
        modified INTEGER NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}

	ledger := &SQLiteLedger{db: db, path: path}
	if err := ledger.begin(); err != nil {
		db.Close()
		return nil, err
	}

	return ledger, nil
}

// Path returns the location of the backing database file.
func (l *SQLiteLedger) Path() string {
	return l.path
}

func (l *SQLiteLedger) begin() error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}

	l.tx = tx

	return nil
}

// Exists implements Ledger.
func (l *SQLiteLedger) Exists(ctx context.Context, path m.Path) (bool, error) {
	var exists int

	err := l.tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM records WHERE path = ? LIMIT 1)`, string(path),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query record %s: %w", path, err)
	}

	return exists == 1, nil
}

// Records implements Ledger using keyset pagination so each chunk is a
// bounded query and the whole result set never sits in memory. The
// iteration runs inside the pending transaction, so fn may mutate the
// ledger between chunks without invalidating a live cursor.
func (l *SQLiteLedger) Records(ctx context.Context, fn func(m.Record) error) error {
	after := ""

	for {
		chunk, err := l.fetchChunk(ctx, after)
		if err != nil {
			return err
		}

		if len(chunk) == 0 {
			return nil
		}

		for _, record := range chunk {
			if err := fn(record); err != nil {
				return err
			}
		}

		after = string(chunk[len(chunk)-1].Path)

		if len(chunk) < recordChunkSize {
			return nil
		}
	}
}

func (l *SQLiteLedger) fetchChunk(ctx context.Context, after string) ([]m.Record, error) {
	rows, err := l.tx.QueryContext(ctx, `
SELECT path, digest, modified FROM records
WHERE path > ? ORDER BY path LIMIT ?
`, after, recordChunkSize)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	chunk := make([]m.Record, 0, recordChunkSize)

	for rows.Next() {
		var (
			path     string
			digest   []byte
			modified int64
		)
		if scanErr := rows.Scan(&path, &digest, &modified); scanErr != nil {
			return nil, fmt.Errorf("scan record: %w", scanErr)
		}

		chunk = append(chunk, m.Record{
			Path:     m.Path(path),
			Digest:   digest,
			Modified: unixNano(modified),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return chunk, nil
}

// Upsert implements Ledger.
func (l *SQLiteLedger) Upsert(ctx context.Context, record m.Record) error {
	_, err := l.tx.ExecContext(ctx, `
INSERT INTO records(path, digest, modified)
VALUES(?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
        digest=excluded.digest,
        modified=excluded.modified
`, string(record.Path), record.Digest, record.Modified.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", record.Path, err)
	}

	return nil
}

// Delete implements Ledger.
func (l *SQLiteLedger) Delete(ctx context.Context, path m.Path) error {
	if _, err := l.tx.ExecContext(ctx, `DELETE FROM records WHERE path = ?`, string(path)); err != nil {
		return fmt.Errorf("delete record %s: %w", path, err)
	}

	return nil
}

// Count implements Ledger.
func (l *SQLiteLedger) Count(ctx context.Context) (int, error) {
	var count int
	if err := l.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}

	return count, nil
}

// Commit implements Ledger.
func (l *SQLiteLedger) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := l.tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}

	return l.begin()
}

// Compact implements Ledger. VACUUM cannot run inside a transaction,
// so pending mutations are committed first.
func (l *SQLiteLedger) Compact(ctx context.Context) error {
	if err := l.Commit(ctx); err != nil {
		return err
	}

	if err := l.tx.Rollback(); err != nil {
		return fmt.Errorf("suspend ledger transaction: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("compact ledger: %w", err)
	}

	return l.begin()
}

// Close implements Ledger.
func (l *SQLiteLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}

	if l.tx != nil {
		if err := l.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.db.Close()
			return fmt.Errorf("roll back pending mutations: %w", err)
		}

		l.tx = nil
	}

	return l.db.Close()
}
