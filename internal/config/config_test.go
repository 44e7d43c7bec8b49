package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProfile = `
data_dir: /var/cache/rbn
fetch_retries: 2
fetch_backoff: 1500ms
filter:
  mode: RTTY
  prefix: DL
  band: 20m
top_n: 100
from: "2025-01-01"
to: "2025-03-31"
output:
  text: dl_rtty.txt
  csv: dl_rtty.csv
`

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "https://data.reversebeacon.net/rbn_history", cfg.BaseURL)
	assert.Equal(t, "rbn-fetch/1.0", cfg.UserAgent)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.Equal(t, 2*time.Second, cfg.FetchBackoff)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, domain.Filter{Mode: "CW", Prefix: "SP", Band: "all"}, cfg.Filter)
	assert.Equal(t, time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC), cfg.From)
	assert.Equal(t, time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC), cfg.To)
	assert.Equal(t, 500, cfg.TopN)
	assert.Equal(t, "morse_runner_calls.txt", cfg.OutTXT)
	assert.Equal(t, "top_calls_sp_cw.csv", cfg.OutCSV)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 32, cfg.ResultCacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("RBN_DATA_DIR", "/tmp/rbn")
	t.Setenv("RBN_BASE_URL", "http://localhost:9000/rbn_history")
	t.Setenv("RBN_USER_AGENT", "test-agent/2.0")
	t.Setenv("RBN_FETCH_RETRIES", "2")
	t.Setenv("RBN_FETCH_BACKOFF", "1500ms")
	t.Setenv("RBN_FETCH_TIMEOUT", "50s")
	t.Setenv("RBN_MODE", "RTTY")
	t.Setenv("RBN_PREFIX", "DL")
	t.Setenv("RBN_BAND", "40m")
	t.Setenv("RBN_TOP_N", "50")
	t.Setenv("RBN_FROM", "2025-02-01")
	t.Setenv("RBN_TO", "2025-02-28")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("RESULT_CACHE_SIZE", "8")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "rankings")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/rbn", cfg.DataDir)
	assert.Equal(t, "http://localhost:9000/rbn_history", cfg.BaseURL)
	assert.Equal(t, "test-agent/2.0", cfg.UserAgent)
	assert.Equal(t, 2, cfg.FetchRetries)
	assert.Equal(t, 1500*time.Millisecond, cfg.FetchBackoff)
	assert.Equal(t, 50*time.Second, cfg.FetchTimeout)
	assert.Equal(t, domain.Filter{Mode: "RTTY", Prefix: "DL", Band: "40m"}, cfg.Filter)
	assert.Equal(t, 50, cfg.TopN)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), cfg.From)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), cfg.To)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8, cfg.ResultCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "rankings", cfg.KafkaTopic)
}

func TestLoad_Profile(t *testing.T) {
	cfg, err := Load(writeProfile(t, testProfile))
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/rbn", cfg.DataDir)
	assert.Equal(t, 2, cfg.FetchRetries)
	assert.Equal(t, 1500*time.Millisecond, cfg.FetchBackoff)
	assert.Equal(t, domain.Filter{Mode: "RTTY", Prefix: "DL", Band: "20m"}, cfg.Filter)
	assert.Equal(t, 100, cfg.TopN)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.From)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), cfg.To)
	assert.Equal(t, "dl_rtty.txt", cfg.OutTXT)
	assert.Equal(t, "dl_rtty.csv", cfg.OutCSV)
	// Untouched keys keep their defaults.
	assert.Equal(t, "rbn-fetch/1.0", cfg.UserAgent)
}

func TestLoad_ProfileFromEnv(t *testing.T) {
	t.Setenv("RBN_CONFIG_FILE", writeProfile(t, testProfile))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "DL", cfg.Filter.Prefix)
}

func TestLoad_EnvOverridesProfile(t *testing.T) {
	t.Setenv("RBN_PREFIX", "OK")
	t.Setenv("RBN_TOP_N", "10")
	cfg, err := Load(writeProfile(t, testProfile))
	require.NoError(t, err)
	assert.Equal(t, "OK", cfg.Filter.Prefix)
	assert.Equal(t, "RTTY", cfg.Filter.Mode)
	assert.Equal(t, 10, cfg.TopN)
}

func TestLoad_ProfileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	_, err = Load(writeProfile(t, "filter: [not, a, map]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")

	_, err = Load(writeProfile(t, "fetch_backoff: soon"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch_backoff")

	_, err = Load(writeProfile(t, "from: 01/08/2024"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		key, value, want string
	}{
		{"RBN_FETCH_RETRIES", "many", "RBN_FETCH_RETRIES"},
		{"RBN_FETCH_RETRIES", "0", "RBN_FETCH_RETRIES"},
		{"RBN_FETCH_RETRIES", "11", "RBN_FETCH_RETRIES"},
		{"RBN_FETCH_BACKOFF", "bad", "RBN_FETCH_BACKOFF"},
		{"RBN_FETCH_BACKOFF", "-1s", "RBN_FETCH_BACKOFF"},
		{"RBN_FETCH_TIMEOUT", "0s", "RBN_FETCH_TIMEOUT"},
		{"RBN_TOP_N", "0", "RBN_TOP_N"},
		{"RBN_BAND", "2m", "RBN_BAND"},
		{"RBN_BAND", "20M", "RBN_BAND"},
		{"RBN_BASE_URL", "ftp://example.com/rbn", "RBN_BASE_URL"},
		{"RBN_BASE_URL", "not a url", "RBN_BASE_URL"},
		{"RESULT_CACHE_SIZE", "0", "RESULT_CACHE_SIZE"},
		{"RBN_FROM", "2025/01/01", "RBN_FROM"},
		{"RBN_TO", "2024-07-31", "RBN_TO"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_KafkaTopicRequired(t *testing.T) {
	cfg := defaults()
	cfg.KafkaEnabled = true
	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.KafkaTopic = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_TOPIC")
}
