// Package controller provides the output surfaces that turn per-file
// outcomes into a human-auditable event stream.
package controller

import (
	"os"

	"golang.org/x/term"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// Reporter receives per-file events in completion order plus pass
// banners and the end-of-run summary. Implementations are called from
// exactly one goroutine (the reconciler's) and need no locking.
type Reporter interface {
	// VerifyStart announces the verification pass and how many records
	// it covers.
	VerifyStart(totalRecords int)

	// DiscoverStart announces the discovery pass.
	DiscoverStart()

	// Removed reports a record whose file no longer exists.
	Removed(path m.Path)

	// Updated reports a record refreshed because its timestamp moved.
	Updated(index, total int, path m.Path, digest []byte)

	// Added reports a newly discovered file.
	Added(index, total int, path m.Path, digest []byte)

	// BitRotDetected reports a corruption signal with both the recorded
	// and the currently observed digest/timestamp pairs.
	BitRotDetected(index, total int, path m.Path, recorded, current m.Evidence)

	// HashError reports a per-file read or digest failure.
	HashError(index, total int, path m.Path, err error)

	// EncodingError reports a path that cannot be stored in the ledger.
	EncodingError(path m.Path, err error)

	// Summary renders the outcome counts of both passes.
	Summary(stats m.RunStats)
}

// IsTTY reports whether the file is attached to a terminal. The root
// command uses it to pick between plain and styled reporter output.
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
