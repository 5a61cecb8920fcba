// Package domain implements the reconciliation engine: the
// verification and discovery passes, the bounded digest worker pool,
// and the durability checkpointing policy.
package domain

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"runtime"

	"rotwatch.dev/pkg/rotwatch/internal/adapter"
	"rotwatch.dev/pkg/rotwatch/internal/controller"
	m "rotwatch.dev/pkg/rotwatch/internal/model"
	"rotwatch.dev/pkg/rotwatch/pkg"
)

// DefaultSaveEvery is the checkpoint interval when none is configured:
// the ledger transaction is committed after this many mutations.
const DefaultSaveEvery = 1000

// Config wires a Reconciler. Zero values for Workers and SaveEvery
// fall back to the number of CPUs and DefaultSaveEvery.
type Config struct {
	Ledger   adapter.Ledger
	FS       adapter.ScanFS
	Digester adapter.Digester
	Reporter controller.Reporter

	// Workers caps how many digest jobs run in parallel.
	Workers int

	// SaveEvery is the mutation-count checkpoint interval.
	SaveEvery int

	// Check controls whether the verification pass runs at all. With
	// it disabled only discovery runs.
	Check bool
}

// Reconciler drives the two passes of a run. It is single-threaded:
// all ledger mutations are issued from the goroutine that called Run,
// and digest workers only ever receive immutable inputs and return
// immutable results.
type Reconciler struct {
	ledger   adapter.Ledger
	fs       adapter.ScanFS
	digester adapter.Digester
	reporter controller.Reporter

	workers   int
	saveEvery int
	check     bool

	// changes counts mutations since the last commit. It belongs to
	// the reconciler rather than any package-level state.
	changes int
	stats   m.RunStats
}

// NewReconciler constructs a Reconciler from the configuration.
func NewReconciler(cfg Config) *Reconciler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	saveEvery := cfg.SaveEvery
	if saveEvery <= 0 {
		saveEvery = DefaultSaveEvery
	}

	return &Reconciler{
		ledger:    cfg.Ledger,
		fs:        cfg.FS,
		digester:  cfg.Digester,
		reporter:  cfg.Reporter,
		workers:   workers,
		saveEvery: saveEvery,
		check:     cfg.Check,
	}
}

// Run executes the verification pass followed by the discovery pass
// and returns the aggregated statistics. On cancellation it returns
// the context error without flushing the pending mutation batch, so
// the ledger is left at its last committed state.
func (r *Reconciler) Run(ctx context.Context) (m.RunStats, error) {
	if r.check {
		if err := r.verify(ctx); err != nil {
			return r.stats, err
		}

		// Discovery's "already has a record" check must observe a
		// ledger state fully reconciled by verification, so the pass
		// boundary is also a commit point.
		if err := r.commit(ctx); err != nil {
			return r.stats, err
		}
	}

	if err := r.discover(ctx); err != nil {
		return r.stats, err
	}

	if err := r.commit(ctx); err != nil {
		return r.stats, err
	}

	if err := r.ledger.Compact(ctx); err != nil {
		return r.stats, err
	}

	slog.Info("run complete",
		"verify_mutations", r.stats.Verify.Mutations(),
		"discover_mutations", r.stats.Discover.Mutations(),
		"bitrot", r.stats.Verify.BitRot+r.stats.Discover.BitRot,
	)

	return r.stats, nil
}

// verify walks every ledger record: records whose file is gone are
// deleted immediately, the rest are staged as digest tasks and then
// classified as completions drain in.
func (r *Reconciler) verify(ctx context.Context) error {
	total, err := r.ledger.Count(ctx)
	if err != nil {
		return err
	}

	r.reporter.VerifyStart(total)
	slog.Info("verification pass started", "records", total)

	tasks, err := pkg.NewSpill[m.Record]()
	if err != nil {
		return err
	}
	defer tasks.Close()

	err = r.ledger.Records(ctx, func(record m.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !r.fs.IsRegularFile(record.Path) {
			if err := r.ledger.Delete(ctx, record.Path); err != nil {
				return err
			}

			r.stats.Verify.Observe(m.Removed)
			r.reporter.Removed(record.Path)

			return r.checkpoint(ctx)
		}

		return tasks.Append(record)
	})
	if err != nil {
		return err
	}

	// Len must be read before fanOut starts: the dispatch goroutine
	// holds the spill mutex for the whole Range, and nothing drains
	// completions until this loop runs.
	pending := int(tasks.Len())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := fanOut(ctx, r.workers, tasks, func(record m.Record) (m.Evidence, error) {
		return r.digester.Compute(r.fs.Resolve(record.Path))
	})

	index := 0

	for c := range results {
		if ctx.Err() != nil {
			continue
		}

		index++
		if err := r.classifyVerified(ctx, index, pending, c); err != nil {
			abandon(cancel, results)
			return err
		}
	}

	return ctx.Err()
}

func (r *Reconciler) classifyVerified(ctx context.Context, index, total int, c completion[m.Record]) error {
	record := c.task

	switch {
	case c.err != nil:
		return r.recordFault(&r.stats.Verify, index, total, record.Path, c.err)

	case !c.evidence.Modified.Equal(record.Modified):
		// The timestamp moved, so any content change is assumed to be
		// an intentional edit, even if the digest happens to match.
		// Timestamp comparison dominates digest comparison; corruption
		// that also touches the timestamp is indistinguishable from an
		// edit under this policy.
		updated := m.Record{Path: record.Path, Digest: c.evidence.Digest, Modified: c.evidence.Modified}
		if err := r.ledger.Upsert(ctx, updated); err != nil {
			return err
		}

		r.stats.Verify.Observe(m.Updated)
		r.reporter.Updated(index, total, record.Path, c.evidence.Digest)

		return r.checkpoint(ctx)

	case !bytes.Equal(c.evidence.Digest, record.Digest):
		// Content changed under an unchanged timestamp. The record is
		// deliberately left alone: it preserves the last-known-good
		// digest as evidence.
		r.stats.Verify.Observe(m.BitRotDetected)
		r.reporter.BitRotDetected(index, total, record.Path,
			m.Evidence{Digest: record.Digest, Modified: record.Modified}, c.evidence)
		slog.Warn("bit rot detected", "path", record.Path, "outcome", m.BitRotDetected)

		return nil

	default:
		r.stats.Verify.Observe(m.Unchanged)
		return nil
	}
}

// discover walks the filesystem for files the ledger has never seen,
// stages them, and records each one as its digest completes.
func (r *Reconciler) discover(ctx context.Context) error {
	r.reporter.DiscoverStart()
	slog.Info("discovery pass started", "root", r.fs.Root())

	tasks, err := pkg.NewSpill[m.Path]()
	if err != nil {
		return err
	}
	defer tasks.Close()

	err = r.fs.WalkFiles(ctx, func(rel m.Path, fault error) error {
		if fault != nil {
			r.stats.Discover.Skipped++
			r.reporter.EncodingError(rel, fault)

			return nil
		}

		exists, err := r.ledger.Exists(ctx, rel)
		if err != nil {
			return err
		}

		if exists {
			return nil
		}

		return tasks.Append(rel)
	})
	if err != nil {
		return err
	}

	pending := int(tasks.Len())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := fanOut(ctx, r.workers, tasks, func(rel m.Path) (m.Evidence, error) {
		return r.digester.Compute(r.fs.Resolve(rel))
	})

	index := 0

	for c := range results {
		if ctx.Err() != nil {
			continue
		}

		index++
		if err := r.classifyDiscovered(ctx, index, pending, c); err != nil {
			abandon(cancel, results)
			return err
		}
	}

	return ctx.Err()
}

func (r *Reconciler) classifyDiscovered(ctx context.Context, index, total int, c completion[m.Path]) error {
	if c.err != nil {
		return r.recordFault(&r.stats.Discover, index, total, c.task, c.err)
	}

	record := m.Record{Path: c.task, Digest: c.evidence.Digest, Modified: c.evidence.Modified}
	if err := r.ledger.Upsert(ctx, record); err != nil {
		return err
	}

	r.stats.Discover.Observe(m.Added)
	r.reporter.Added(index, total, c.task, c.evidence.Digest)

	return r.checkpoint(ctx)
}

// recordFault handles a failed digest task: transient misses are
// skipped silently (the next run reconciles the record naturally),
// everything else is reported and counted but never aborts the pass.
func (r *Reconciler) recordFault(stats *m.PassStats, index, total int, path m.Path, err error) error {
	var fault *adapter.FileFault
	if errors.As(err, &fault) && fault.Kind == adapter.TransientMiss {
		stats.Skipped++
		slog.Debug("file vanished before read", "path", path)

		return nil
	}

	stats.Observe(m.HashError)
	r.reporter.HashError(index, total, path, err)
	slog.Error("digest failed", "path", path, "error", err)

	return nil
}

// checkpoint commits the pending batch once saveEvery mutations have
// accumulated. Committing after every mutation would be prohibitively
// slow on large trees; batching only bounds how much re-work an
// interrupted run loses.
func (r *Reconciler) checkpoint(ctx context.Context) error {
	r.changes++
	if r.changes < r.saveEvery {
		return nil
	}

	return r.commit(ctx)
}

func (r *Reconciler) commit(ctx context.Context) error {
	if err := r.ledger.Commit(ctx); err != nil {
		return err
	}

	slog.Debug("ledger checkpoint committed", "mutations", r.changes)
	r.changes = 0

	return nil
}
