// Package adapter contains the infrastructure adapters (ledger
// storage, filesystem traversal, digest computation) consumed by the
// reconciler.
package adapter

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/zeebo/blake3"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// DefaultChunkSize is the read buffer size used when none is
// configured: 1 MiB bounds memory regardless of file size.
const DefaultChunkSize = 1 << 20

// Digester computes the content digest of one file together with the
// modification time observed by the same read. Implementations hold no
// shared mutable state beyond the hash construction itself, so a
// single Digester is safe to use from many workers at once.
type Digester interface {
	// Algorithm returns the name the digester was built with.
	Algorithm() string

	// Compute reads the file at the given resolved path in fixed-size
	// chunks, returning its digest and modification time. Failures are
	// reported as *FileFault so callers can match on the kind.
	Compute(path string) (m.Evidence, error)
}

var algorithms = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
	"blake3": func() hash.Hash { return blake3.New() },
}

// SupportedAlgorithms lists the digest algorithm names this build
// accepts, sorted for stable help output.
func SupportedAlgorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

type streamDigester struct {
	algorithm string
	factory   func() hash.Hash
	chunkSize int
}

// NewDigester constructs a Digester for the named algorithm. The name
// is validated against the supported set; an unknown name is a
// configuration error, not a per-file fault.
func NewDigester(algorithm string, chunkSize int) (Digester, error) {
	factory, ok := algorithms[algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm %q (supported: %v)", algorithm, SupportedAlgorithms())
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &streamDigester{
		algorithm: algorithm,
		factory:   factory,
		chunkSize: chunkSize,
	}, nil
}

func (d *streamDigester) Algorithm() string {
	return d.algorithm
}

// Compute streams the file through the hash in chunkSize reads and
// stats the path immediately after closing it. The stat is always on
// this side of the read: a perfect atomic read+stat is not possible
// without platform-specific locking, so the window is kept narrow and
// consistent instead.
func (d *streamDigester) Compute(path string) (m.Evidence, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m.Evidence{}, newFault(TransientMiss, m.Path(path), err)
		}

		return m.Evidence{}, newFault(ReadFault, m.Path(path), err)
	}

	digest := d.factory()
	buf := make([]byte, d.chunkSize)

	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			_ = file.Close()
			return m.Evidence{}, newFault(ReadFault, m.Path(path), readErr)
		}
	}

	if err := file.Close(); err != nil {
		return m.Evidence{}, newFault(ReadFault, m.Path(path), err)
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m.Evidence{}, newFault(TransientMiss, m.Path(path), err)
		}

		return m.Evidence{}, newFault(ReadFault, m.Path(path), err)
	}

	return m.Evidence{Digest: digest.Sum(nil), Modified: info.ModTime()}, nil
}
