package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/adapter/rbn"
	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/couchcryptid/rbn-top-calls/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream serves scenario archives for 2025-01-01 and 2025-01-02 and counts requests.
type upstream struct {
	srv  *httptest.Server
	hits atomic.Int32
	// onRequest, if set, runs before each archive is served.
	onRequest func(r *http.Request)
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	dir := t.TempDir()
	spot := func(dx, mode, band string) domain.Spot {
		return domain.Spot{SourcePrefix: "SP", DX: dx, Mode: mode, Band: band}
	}
	write := func(stem string, schema rbn.Schema, table domain.Table) {
		day, err := time.Parse(domain.StemLayout, stem)
		require.NoError(t, err)
		var recs [][]string
		if h := rbn.Header(schema); h != nil {
			recs = append(recs, h)
		}
		for _, s := range table {
			recs = append(recs, rbn.Record(schema, s, "SP5XYZ-#", day))
		}
		require.NoError(t, rbn.WriteArchive(filepath.Join(dir, stem+".zip"), stem+".csv", recs))
	}
	write("20250101", rbn.SchemaFull, domain.Table{
		spot("W1ABC", "CW", "20m"), spot("W1ABC", "CW", "20m"), spot("W1ABC", "CW", "20m"),
		spot("K2XYZ", "CW", "40m"),
	})
	write("20250102", rbn.SchemaTelegraphy, domain.Table{
		spot("W1ABC", "RTTY", "20m"), spot("W1ABC", "RTTY", "20m"),
		spot("K2XYZ", "CW", "40m"),
	})

	u := &upstream{}
	files := http.FileServer(http.Dir(dir))
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if u.onRequest != nil {
			u.onRequest(r)
		}
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

type result struct {
	code   int
	stdout string
	stderr string
	out    string
}

func runCLI(t *testing.T, u *upstream, args ...string) result {
	t.Helper()
	return runCLIContext(t, context.Background(), u, args...)
}

func runCLIContext(t *testing.T, ctx context.Context, u *upstream, args ...string) result {
	t.Helper()
	out := t.TempDir()
	t.Setenv("RBN_BASE_URL", u.srv.URL)
	t.Setenv("RBN_FETCH_RETRIES", "1")
	t.Setenv("RBN_FETCH_BACKOFF", "0s")
	t.Setenv("LOG_LEVEL", "error")

	base := []string{
		"-dir", filepath.Join(out, "data"),
		"-out-txt", filepath.Join(out, "calls.txt"),
		"-out-csv", filepath.Join(out, "top.csv"),
	}
	var stdout, stderr bytes.Buffer
	code := run(ctx, append(base, args...), &stdout, &stderr, observability.NewMetricsForTesting())
	return result{code: code, stdout: stdout.String(), stderr: stderr.String(), out: out}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_TwoDayScenario(t *testing.T) {
	u := newUpstream(t)
	res := runCLI(t, u, "-from", "2025-01-01", "-to", "2025-01-02", "-top", "2")

	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "W1ABC\nK2XYZ\n", readFile(t, filepath.Join(res.out, "calls.txt")))
	assert.Equal(t, "callsign,count\nW1ABC,3\nK2XYZ,2\n", readFile(t, filepath.Join(res.out, "top.csv")))
	assert.Contains(t, res.stdout, "[OK] Wrote 2 callsigns")
	assert.Contains(t, res.stdout, "5 matching spots")
	assert.Contains(t, res.stderr, "[2/2] 20250102 processed")
}

func TestRun_BandFilter(t *testing.T) {
	u := newUpstream(t)
	res := runCLI(t, u, "-from", "2025-01-01", "-to", "2025-01-02", "-band", "20m")

	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "callsign,count\nW1ABC,3\n", readFile(t, filepath.Join(res.out, "top.csv")))
}

func TestRun_OfflineUsesCacheOnly(t *testing.T) {
	u := newUpstream(t)
	res := runCLI(t, u, "-from", "2025-01-01", "-to", "2025-01-02", "-offline")

	assert.Equal(t, exitNoData, res.code)
	assert.Zero(t, u.hits.Load(), "offline runs must not download")
}

func TestRun_BadInputFailsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad from", []string{"-from", "2025-13-01", "-to", "2025-01-02"}},
		{"bad to", []string{"-from", "2025-01-01", "-to", "02/01/2025"}},
		{"inverted range", []string{"-from", "2025-01-05", "-to", "2025-01-01"}},
		{"zero top", []string{"-from", "2025-01-01", "-to", "2025-01-02", "-top", "0"}},
		{"unknown band", []string{"-from", "2025-01-01", "-to", "2025-01-02", "-band", "2m"}},
		{"unknown flag", []string{"-verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUpstream(t)
			res := runCLI(t, u, tt.args...)

			assert.Equal(t, exitUsage, res.code)
			assert.Zero(t, u.hits.Load())
			assert.NoFileExists(t, filepath.Join(res.out, "calls.txt"))
		})
	}
}

func TestRun_NoDataLeavesOutputsUntouched(t *testing.T) {
	u := newUpstream(t)
	res := runCLI(t, u, "-from", "2025-02-01", "-to", "2025-02-03")

	assert.Equal(t, exitNoData, res.code)
	assert.Contains(t, res.stderr, "No data after filtering")
	assert.EqualValues(t, 3, u.hits.Load())
	assert.NoFileExists(t, filepath.Join(res.out, "calls.txt"))
	assert.NoFileExists(t, filepath.Join(res.out, "top.csv"))
}

func TestRun_CancelledDuringLastDayWritesNothing(t *testing.T) {
	u := newUpstream(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	u.onRequest = func(r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "20250102.zip") {
			cancel()
		}
	}

	res := runCLIContext(t, ctx, u, "-from", "2025-01-01", "-to", "2025-01-02")

	assert.Equal(t, exitNoData, res.code)
	assert.Contains(t, res.stderr, context.Canceled.Error())
	assert.NoFileExists(t, filepath.Join(res.out, "calls.txt"))
	assert.NoFileExists(t, filepath.Join(res.out, "top.csv"))
}

func TestRun_OutputFailure(t *testing.T) {
	u := newUpstream(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	res := runCLI(t, u, "-from", "2025-01-01", "-to", "2025-01-01",
		"-out-txt", filepath.Join(blocker, "calls.txt"))

	assert.Equal(t, exitOutput, res.code)
}
