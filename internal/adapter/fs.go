package adapter

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// ScanFS abstracts the filesystem operations the reconciler performs
// against the scan root, so pass logic can be exercised without
// depending on `os` directly.
type ScanFS interface {
	// Root returns the absolute scan root.
	Root() string

	// Resolve joins a ledger-relative path onto the scan root.
	Resolve(rel m.Path) string

	// IsRegularFile reports whether the relative path currently names a
	// regular file. Symlinks are not followed: a path that turned into
	// a symlink no longer counts as the recorded file.
	IsRegularFile(rel m.Path) bool

	// WalkFiles traverses the root recursively and invokes fn once per
	// eligible regular file with its root-relative path. Entries whose
	// relative path cannot be stored in the ledger's text encoding are
	// delivered with an EncodingFault instead. Excluded paths (the
	// ledger file and its sidecars) are never delivered.
	WalkFiles(ctx context.Context, fn func(rel m.Path, fault error) error) error
}

// LocalScanFS is the ScanFS implementation backed by the local disk.
type LocalScanFS struct {
	root    string
	exclude map[string]struct{}
}

// sqliteSidecars are the journal files SQLite keeps next to the ledger
// in WAL mode. They live inside the scanned root and churn on every
// run, so they are excluded along with the ledger itself.
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

// NewLocalScanFS constructs a LocalScanFS rooted at root. Every path
// in excludePaths (typically the ledger file and the log file) is
// skipped during traversal, together with its SQLite sidecars.
func NewLocalScanFS(root string, excludePaths ...string) (*LocalScanFS, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]struct{}, len(excludePaths)*(len(sqliteSidecars)+1))
	for _, path := range excludePaths {
		if path == "" {
			continue
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}

		exclude[abs] = struct{}{}
		for _, suffix := range sqliteSidecars {
			exclude[abs+suffix] = struct{}{}
		}
	}

	return &LocalScanFS{root: absRoot, exclude: exclude}, nil
}

// Root returns the absolute scan root.
func (s *LocalScanFS) Root() string {
	return s.root
}

// Resolve joins a ledger-relative path onto the scan root.
func (s *LocalScanFS) Resolve(rel m.Path) string {
	return filepath.Join(s.root, string(rel))
}

// IsRegularFile reports whether rel currently names a regular file.
func (s *LocalScanFS) IsRegularFile(rel m.Path) bool {
	info, err := os.Lstat(s.Resolve(rel))

	return err == nil && info.Mode().IsRegular()
}

// WalkFiles implements ScanFS. Symlinks are not followed, so every
// relative path is delivered at most once per traversal; unreadable
// subtrees are skipped rather than aborting the walk.
func (s *LocalScanFS) WalkFiles(ctx context.Context, fn func(rel m.Path, fault error) error) error {
	return filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		if _, excluded := s.exclude[path]; excluded {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return fn(m.Path(path), newFault(EncodingFault, m.Path(path), relErr))
		}

		if !utf8.ValidString(rel) {
			return fn(m.Path(path), newFault(EncodingFault, m.Path(path), errors.New("path is not valid UTF-8")))
		}

		return fn(m.Path(rel), nil)
	})
}
