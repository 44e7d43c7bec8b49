package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entries = []domain.Entry{
	{Callsign: "W1ABC", Count: 3},
	{Callsign: "K2XYZ", Count: 2},
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteText(&buf, entries))
	assert.Equal(t, "W1ABC\nK2XYZ\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, entries))
	assert.Equal(t, "callsign,count\nW1ABC,3\nK2XYZ,2\n", buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))
	assert.Equal(t, "callsign,count\n", buf.String())
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "out", "calls.txt")
	csvPath := filepath.Join(dir, "out", "top.csv")

	require.NoError(t, export.WriteFiles(txt, csvPath, entries))

	txtData, err := os.ReadFile(txt)
	require.NoError(t, err)
	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(txtData)), "\n")
	rows := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	assert.Len(t, lines, len(rows)-1, "text lines must equal csv rows minus header")
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(rows[i+1], line+","), "row %d out of order", i)
	}

	for _, path := range []string{txt, csvPath} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), path)
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "out", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteFiles_Overwrites(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "calls.txt")
	csvPath := filepath.Join(dir, "top.csv")
	require.NoError(t, os.WriteFile(txt, []byte("OLD\nOLD2\nOLD3\n"), 0o644))

	require.NoError(t, export.WriteFiles(txt, csvPath, entries[:1]))

	data, err := os.ReadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, "W1ABC\n", string(data))
}

func TestWriteFiles_NothingToWrite(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "calls.txt")
	csvPath := filepath.Join(dir, "top.csv")

	err := export.WriteFiles(txt, csvPath, nil)
	require.ErrorIs(t, err, export.ErrNothingToWrite)

	_, err = os.Stat(txt)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(csvPath)
	assert.True(t, os.IsNotExist(err))
}
