package controller

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

func newTestReporter() (*ConsoleReporter, *bytes.Buffer) {
	buf := &bytes.Buffer{}

	return NewConsoleReporter(buf, "/scans/.rotwatch.db", "/scans", false), buf
}

func TestConsoleReporter_Banners(t *testing.T) {
	reporter, buf := newTestReporter()

	reporter.VerifyStart(42)
	reporter.DiscoverStart()

	out := buf.String()
	assert.Contains(t, out, `Checking against 42 records from "/scans/.rotwatch.db"...`)
	assert.Contains(t, out, `Checking for new files in "/scans"...`)
}

func TestConsoleReporter_Events(t *testing.T) {
	reporter, buf := newTestReporter()

	reporter.Removed("gone.txt")
	reporter.Updated(1, 3, "edited.txt", []byte{0xab, 0xcd})
	reporter.Added(2, 3, "new.txt", []byte{0x01, 0x02})
	reporter.HashError(3, 3, "broken.txt", assert.AnError)
	reporter.EncodingError("weird\xffname", assert.AnError)

	out := buf.String()
	assert.Contains(t, out, `Removing record for "gone.txt", no such file`)
	assert.Contains(t, out, `(1/3) Updating record for "edited.txt": abcd`)
	assert.Contains(t, out, `(2/3) Adding record for "new.txt": 0102`)
	assert.Contains(t, out, `(3/3) Failed to hash "broken.txt"`)
	assert.Contains(t, out, "Skipping")
}

func TestConsoleReporter_BitRotEvidence(t *testing.T) {
	reporter, buf := newTestReporter()

	recordedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	currentAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	reporter.BitRotDetected(1, 1, "photos/img.jpg",
		m.Evidence{Digest: []byte{0x9b, 0x0a}, Modified: recordedAt},
		m.Evidence{Digest: []byte{0x77, 0xef}, Modified: currentAt},
	)

	out := buf.String()
	assert.Contains(t, out, `(1/1) Bit rot detected in "photos/img.jpg"!`)
	assert.Contains(t, out, "Recorded: 9b0a at 2024-05-01T10:00:00Z")
	assert.Contains(t, out, "Current:  77ef at 2024-05-01T10:00:00Z")
}

func TestConsoleReporter_Summary(t *testing.T) {
	reporter, buf := newTestReporter()

	stats := m.RunStats{
		Verify:   m.PassStats{Unchanged: 10, Updated: 2, Removed: 1, BitRot: 1},
		Discover: m.PassStats{Added: 3},
	}
	reporter.Summary(stats)

	out := buf.String()
	assert.Contains(t, out, "unchanged")
	assert.Contains(t, out, "bitrot")
	assert.Contains(t, out, "10")
	assert.Contains(t, out, "3")
}
