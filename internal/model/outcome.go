package model

// Outcome classifies one file after comparing a live read against the
// stored record (or its absence).
type Outcome int

const (
	// Unchanged means digest and modification time both match the record.
	Unchanged Outcome = iota
	// Updated means the modification time moved, so any content change
	// is assumed to be an intentional edit.
	Updated
	// Added means the file has no record yet.
	Added
	// Removed means a record exists but the file is gone.
	Removed
	// BitRotDetected means the content changed while the modification
	// time did not: a storage-level corruption signal.
	BitRotDetected
	// HashError means the file could not be read or digested.
	HashError
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case BitRotDetected:
		return "bitrot"
	case HashError:
		return "hash error"
	}

	return "unknown"
}

// PassStats counts the outcomes observed during a single pass.
type PassStats struct {
	Unchanged int
	Updated   int
	Added     int
	Removed   int
	BitRot    int
	Errors    int
	Skipped   int
}

// Observe increments the counter matching one classified outcome.
func (s *PassStats) Observe(o Outcome) {
	switch o {
	case Unchanged:
		s.Unchanged++
	case Updated:
		s.Updated++
	case Added:
		s.Added++
	case Removed:
		s.Removed++
	case BitRotDetected:
		s.BitRot++
	case HashError:
		s.Errors++
	}
}

// Mutations returns how many ledger mutations the pass produced.
func (s PassStats) Mutations() int {
	return s.Updated + s.Added + s.Removed
}

// RunStats aggregates the statistics of both passes of a run.
type RunStats struct {
	Verify   PassStats
	Discover PassStats
}

// CorruptionFound reports whether at least one file was classified as
// bit rot during the run. It decides the process exit status.
func (s RunStats) CorruptionFound() bool {
	return s.Verify.BitRot > 0 || s.Discover.BitRot > 0
}
