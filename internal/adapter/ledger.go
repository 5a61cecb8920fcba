package adapter

import (
	"context"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// Ledger is the persistence contract for file records. All mutations
// accumulate in a pending transaction until Commit is called, so the
// reconciler can checkpoint batches of work; each individual upsert or
// delete is still atomic within that transaction. A Ledger is owned by
// exactly one goroutine; the reconciler never shares it with digest
// workers.
type Ledger interface {
	// Exists reports whether a record is stored for the relative path.
	// It observes pending (uncommitted) mutations.
	Exists(ctx context.Context, path m.Path) (bool, error)

	// Records iterates every stored record in chunks, invoking fn once
	// per record. Memory stays bounded for arbitrarily large ledgers.
	// Returning an error from fn stops the iteration and propagates.
	Records(ctx context.Context, fn func(m.Record) error) error

	// Upsert atomically creates or replaces the record keyed by its path.
	Upsert(ctx context.Context, record m.Record) error

	// Delete atomically removes the record keyed by path; removing an
	// absent path is a no-op.
	Delete(ctx context.Context, path m.Path) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Commit durably flushes all pending mutations and opens a fresh
	// transaction for the next batch.
	Commit(ctx context.Context) error

	// Compact reclaims space left behind by deleted records. Callers
	// run it as end-of-run housekeeping; it implies a Commit.
	Compact(ctx context.Context) error

	// Close rolls back any pending mutations and releases the storage.
	// The last committed state remains valid.
	Close() error
}
