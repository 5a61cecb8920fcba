package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotwatch.dev/pkg/rotwatch/internal/adapter"
	"rotwatch.dev/pkg/rotwatch/internal/domain"
	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

// executeScan runs the scan command against root with the log file
// redirected into a throwaway directory, so tests never write a
// .rotwatch.log into the working directory.
func executeScan(t *testing.T, root string, extraArgs ...string) (string, error) {
	t.Helper()

	originalLog := viper.GetString(logFilenameKey)
	viper.Set(logFilenameKey, filepath.Join(t.TempDir(), "rotwatch.log"))
	t.Cleanup(func() {
		viper.Set(logFilenameKey, originalLog)
		// Rebind the scan flags to a pristine command so flag values
		// from this test (e.g. --hash-algorithm) don't leak into
		// later tests through the global viper singleton.
		newScanCmd()
	})

	cmd := newRootCmd()
	cmd.AddCommand(newScanCmd())

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"scan", root}, extraArgs...))

	err := cmd.Execute()

	return out.String(), err
}

func seedFile(t *testing.T, root, name, content string) string {
	t.Helper()

	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func readLedgerRecords(t *testing.T, dbPath string) map[m.Path]m.Record {
	t.Helper()

	ledger, err := adapter.OpenLedger(dbPath)
	require.NoError(t, err)
	defer ledger.Close()

	records := map[m.Path]m.Record{}
	require.NoError(t, ledger.Records(context.Background(), func(r m.Record) error {
		records[r.Path] = r
		return nil
	}))

	return records
}

func TestScanCmd_RecordsNewFiles(t *testing.T) {
	root := t.TempDir()
	seedFile(t, root, "a.txt", "alpha")
	seedFile(t, root, "b.txt", "beta")

	output, err := executeScan(t, root)
	require.NoError(t, err)

	assert.Contains(t, output, fmt.Sprintf("Checking for new files in %q...", root))
	assert.Contains(t, output, `Adding record for "a.txt"`)
	assert.Contains(t, output, `Adding record for "b.txt"`)

	dbPath := filepath.Join(root, defaultDatabaseName)
	require.FileExists(t, dbPath)
	assert.Len(t, readLedgerRecords(t, dbPath), 2)
}

func TestScanCmd_SecondRunIsQuiet(t *testing.T) {
	root := t.TempDir()
	seedFile(t, root, "a.txt", "alpha")

	_, err := executeScan(t, root)
	require.NoError(t, err)

	output, err := executeScan(t, root)
	require.NoError(t, err)

	assert.Contains(t, output, "Checking against 1 records from")
	assert.NotContains(t, output, "Adding record")
	assert.NotContains(t, output, "Updating record")
}

func TestScanCmd_ExitsNonZeroOnBitRot(t *testing.T) {
	root := t.TempDir()
	path := seedFile(t, root, "a.txt", "healthy data")

	_, err := executeScan(t, root)
	require.NoError(t, err)

	dbPath := filepath.Join(root, defaultDatabaseName)
	seeded := readLedgerRecords(t, dbPath)[m.Path("a.txt")]

	// Same length, different bytes, recorded timestamp restored.
	seedFile(t, root, "a.txt", "rotten  data")
	require.NoError(t, os.Chtimes(path, seeded.Modified, seeded.Modified))

	output, err := executeScan(t, root)
	require.ErrorIs(t, err, domain.ErrBitRotFound)

	assert.Contains(t, output, `Bit rot detected in "a.txt"!`)
	assert.Contains(t, output, "Recorded:")
	assert.Contains(t, output, "Current:")
}

func TestScanCmd_NoCheckSkipsVerification(t *testing.T) {
	root := t.TempDir()
	path := seedFile(t, root, "a.txt", "here today")

	_, err := executeScan(t, root)
	require.NoError(t, err)

	// With verification disabled a deleted file's record must survive.
	require.NoError(t, os.Remove(path))

	output, err := executeScan(t, root, "--no-check")
	require.NoError(t, err)

	assert.NotContains(t, output, "Checking against")
	assert.NotContains(t, output, "Removing record")

	dbPath := filepath.Join(root, defaultDatabaseName)
	assert.Contains(t, readLedgerRecords(t, dbPath), m.Path("a.txt"))
}

func TestScanCmd_RejectsUnknownAlgorithm(t *testing.T) {
	root := t.TempDir()
	seedFile(t, root, "a.txt", "content")

	_, err := executeScan(t, root, "--hash-algorithm", "md5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "md5")
}

func TestScanCmd_BlakeAlgorithmFlag(t *testing.T) {
	root := t.TempDir()
	seedFile(t, root, "a.txt", "content")

	_, err := executeScan(t, root, "--hash-algorithm", "blake3")
	require.NoError(t, err)

	dbPath := filepath.Join(root, defaultDatabaseName)
	records := readLedgerRecords(t, dbPath)
	require.Contains(t, records, m.Path("a.txt"))
	assert.Len(t, records[m.Path("a.txt")].Digest, 32)
}
