package cmd

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
)

func TestExportCmd_StreamsRecordsAsYAML(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(root, defaultDatabaseName)

	digestA := sha256.Sum256([]byte("alpha"))
	digestB := sha256.Sum256([]byte("beta"))
	modified := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	seedLedger(t, dbPath,
		m.Record{Path: "a.txt", Digest: digestA[:], Modified: modified},
		m.Record{Path: "b.txt", Digest: digestB[:], Modified: modified.Add(time.Hour)},
	)

	cmd := newRootCmd()
	cmd.AddCommand(newExportCmd())

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"export", root})

	require.NoError(t, cmd.Execute())

	decoder := yaml.NewDecoder(bytes.NewReader(out.Bytes()))

	var exported []exportRecord
	for {
		var record exportRecord
		err := decoder.Decode(&record)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		exported = append(exported, record)
	}

	require.Len(t, exported, 2)
	assert.Equal(t, "a.txt", exported[0].Path)
	assert.Equal(t, hex.EncodeToString(digestA[:]), exported[0].Digest)
	assert.True(t, exported[0].Modified.Equal(modified))
	assert.Equal(t, "b.txt", exported[1].Path)
	assert.Equal(t, hex.EncodeToString(digestB[:]), exported[1].Digest)
}

func TestExportCmd_EmptyLedgerWritesNothing(t *testing.T) {
	root := t.TempDir()

	cmd := newRootCmd()
	cmd.AddCommand(newExportCmd())

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"export", root})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, bytes.TrimSpace(out.Bytes()))
}
