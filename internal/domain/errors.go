package domain

import "errors"

// ErrBitRotFound is returned by a run that classified at least one
// file as corrupted. It is not a processing failure: the run completed
// and the ledger is consistent, but the process must exit non-zero.
var ErrBitRotFound = errors.New("bit rot detected in at least one file")
