package adapter

import (
	"fmt"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// FaultKind is the closed set of per-file failure classes. Failures
// local to one file never propagate past that file's classification
// step; the kind tells the reconciler how to react.
type FaultKind int

const (
	// TransientMiss means the file vanished between enumeration and
	// read. Skipped silently; the next run reconciles the ledger.
	TransientMiss FaultKind = iota
	// ReadFault means the file exists but could not be read (permission
	// denied, I/O error). Reported per file, never fatal to the run.
	ReadFault
	// EncodingFault means the relative path cannot be represented in
	// the ledger's text encoding. Reported, file skipped.
	EncodingFault
)

func (k FaultKind) String() string {
	switch k {
	case TransientMiss:
		return "transient miss"
	case ReadFault:
		return "read fault"
	case EncodingFault:
		return "encoding fault"
	}

	return "unknown fault"
}

// FileFault tags an underlying error with the failure class and the
// file it occurred on, so callers match on the kind instead of
// inspecting error strings.
type FileFault struct {
	Kind FaultKind
	Path m.Path
	Err  error
}

func (f *FileFault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Path, f.Kind)
	}

	return fmt.Sprintf("%s: %s: %v", f.Path, f.Kind, f.Err)
}

func (f *FileFault) Unwrap() error {
	return f.Err
}

func newFault(kind FaultKind, path m.Path, err error) *FileFault {
	return &FileFault{Kind: kind, Path: path, Err: err}
}
