package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotwatch.dev/pkg/rotwatch/internal/adapter"
	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

func seedLedger(t *testing.T, dbPath string, records ...m.Record) {
	t.Helper()

	ledger, err := adapter.OpenLedger(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	for _, record := range records {
		require.NoError(t, ledger.Upsert(ctx, record))
	}

	require.NoError(t, ledger.Commit(ctx))
	require.NoError(t, ledger.Close())
}

func TestStatusCmd_ReportsRecordCount(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, defaultDatabaseName)
	seedLedger(t, dbPath,
		m.Record{Path: "a.txt", Digest: []byte{0x01}, Modified: time.Now()},
		m.Record{Path: "b.txt", Digest: []byte{0x02}, Modified: time.Now()},
	)

	cmd := newRootCmd()
	cmd.AddCommand(newStatusCmd())

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"status", root})

	require.NoError(t, cmd.Execute())

	output := out.String()
	assert.Contains(t, output, "ledger")
	assert.Contains(t, output, dbPath)
	assert.Contains(t, output, "records")
	assert.Contains(t, output, "2")
	assert.Contains(t, output, defaultHashAlgorithm)
}

func TestStatusCmd_EmptyLedger(t *testing.T) {
	root := t.TempDir()

	cmd := newRootCmd()
	cmd.AddCommand(newStatusCmd())

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"status", root})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "0")
}
