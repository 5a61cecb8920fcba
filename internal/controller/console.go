package controller

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// ConsoleReporter writes one line per notable event as it completes,
// plus pass banners and a summary table. With styling enabled the
// corruption alerts are rendered bold red so they stand out in long
// scan transcripts.
type ConsoleReporter struct {
	w          io.Writer
	ledgerPath string
	root       string
	styled     bool
	alert      lipgloss.Style
}

// NewConsoleReporter constructs a ConsoleReporter. ledgerPath and root
// appear in the pass banners; styled should reflect whether the writer
// is a terminal.
func NewConsoleReporter(w io.Writer, ledgerPath, root string, styled bool) *ConsoleReporter {
	return &ConsoleReporter{
		w:          w,
		ledgerPath: ledgerPath,
		root:       root,
		styled:     styled,
		alert:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

// VerifyStart implements Reporter.
func (r *ConsoleReporter) VerifyStart(totalRecords int) {
	r.printf("Checking against %d records from %q...\n", totalRecords, r.ledgerPath)
}

// DiscoverStart implements Reporter.
func (r *ConsoleReporter) DiscoverStart() {
	r.printf("Checking for new files in %q...\n", r.root)
}

// Removed implements Reporter.
func (r *ConsoleReporter) Removed(path m.Path) {
	r.printf("\t- Removing record for %q, no such file\n", string(path))
}

// Updated implements Reporter.
func (r *ConsoleReporter) Updated(index, total int, path m.Path, digest []byte) {
	r.printf("\t- (%d/%d) Updating record for %q: %s\n", index, total, string(path), hex.EncodeToString(digest))
}

// Added implements Reporter.
func (r *ConsoleReporter) Added(index, total int, path m.Path, digest []byte) {
	r.printf("\t- (%d/%d) Adding record for %q: %s\n", index, total, string(path), hex.EncodeToString(digest))
}

// BitRotDetected implements Reporter. The evidence lines carry both
// digest/timestamp pairs; they are the load-bearing part of the whole
// event stream.
func (r *ConsoleReporter) BitRotDetected(index, total int, path m.Path, recorded, current m.Evidence) {
	headline := fmt.Sprintf("\t- (%d/%d) Bit rot detected in %q!", index, total, string(path))
	if r.styled {
		headline = r.alert.Render(headline)
	}

	r.printf("%s\n", headline)
	r.printf("\t\tRecorded: %s at %s\n", hex.EncodeToString(recorded.Digest), recorded.Modified.Format(time.RFC3339Nano))
	r.printf("\t\tCurrent:  %s at %s\n", hex.EncodeToString(current.Digest), current.Modified.Format(time.RFC3339Nano))
}

// HashError implements Reporter.
func (r *ConsoleReporter) HashError(index, total int, path m.Path, err error) {
	r.printf("\t- (%d/%d) Failed to hash %q: %v\n", index, total, string(path), err)
}

// EncodingError implements Reporter.
func (r *ConsoleReporter) EncodingError(path m.Path, err error) {
	r.printf("\t- Skipping %q: %v\n", string(path), err)
}

// Summary implements Reporter.
func (r *ConsoleReporter) Summary(stats m.RunStats) {
	r.printf("\n%s", renderSummaryTable(stats))
}

func renderSummaryTable(stats m.RunStats) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Outcome", "Verification", "Discovery"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER})

	rows := []struct {
		label            string
		verify, discover int
	}{
		{"unchanged", stats.Verify.Unchanged, stats.Discover.Unchanged},
		{"updated", stats.Verify.Updated, stats.Discover.Updated},
		{"added", stats.Verify.Added, stats.Discover.Added},
		{"removed", stats.Verify.Removed, stats.Discover.Removed},
		{"bitrot", stats.Verify.BitRot, stats.Discover.BitRot},
		{"errors", stats.Verify.Errors, stats.Discover.Errors},
		{"skipped", stats.Verify.Skipped, stats.Discover.Skipped},
	}
	for _, row := range rows {
		table.Append([]string{row.label, strconv.Itoa(row.verify), strconv.Itoa(row.discover)})
	}

	table.SetFooter([]string{
		"mutations",
		strconv.Itoa(stats.Verify.Mutations()),
		strconv.Itoa(stats.Discover.Mutations()),
	})

	table.Render()

	return buf.String()
}

func (r *ConsoleReporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}
