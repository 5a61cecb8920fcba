// Package model defines the data structures shared by the
// reconciliation engine.
package model

import "time"

// Path represents a file system path. Ledger records always hold paths
// relative to the scan root; adapters resolve them against the root
// before touching the disk.
type Path string

// Record is the ledger's unit of truth for one file: the content
// digest and the modification time observed when that digest was
// computed. Both fields are captured from the same read of the file,
// never a digest from one read paired with a timestamp from a later
// stat.
type Record struct {
	Path     Path
	Digest   []byte
	Modified time.Time
}

// Evidence pairs a digest with the modification time it was captured
// at. Corruption reports carry two of these: the recorded state and
// the current state.
type Evidence struct {
	Digest   []byte
	Modified time.Time
}
