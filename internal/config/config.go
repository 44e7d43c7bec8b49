package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Config holds all settings, populated from an optional YAML profile and
// environment variables. Environment variables win over the profile.
type Config struct {
	// Archive source and cache.
	DataDir      string
	BaseURL      string
	UserAgent    string
	FetchRetries int
	FetchBackoff time.Duration
	FetchTimeout time.Duration

	// Ranking. From and To are the default date range.
	From   time.Time
	To     time.Time
	Filter domain.Filter
	TopN   int
	OutTXT string
	OutCSV string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ResultCacheSize int

	// Optional Kafka sink for published rankings.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// profile is the YAML layout of RBN_CONFIG_FILE. Zero values leave defaults alone.
type profile struct {
	DataDir      string        `yaml:"data_dir"`
	BaseURL      string        `yaml:"base_url"`
	UserAgent    string        `yaml:"user_agent"`
	FetchRetries int           `yaml:"fetch_retries"`
	FetchBackoff string        `yaml:"fetch_backoff"`
	FetchTimeout string        `yaml:"fetch_timeout"`
	From         string        `yaml:"from"`
	To           string        `yaml:"to"`
	Filter       domain.Filter `yaml:"filter"`
	TopN         int           `yaml:"top_n"`
	Output       struct {
		Text string `yaml:"text"`
		CSV  string `yaml:"csv"`
	} `yaml:"output"`
}

func defaults() *Config {
	return &Config{
		DataDir:      "data",
		BaseURL:      "https://data.reversebeacon.net/rbn_history",
		UserAgent:    "rbn-fetch/1.0",
		FetchRetries: 3,
		FetchBackoff: 2 * time.Second,
		FetchTimeout: 60 * time.Second,
		From:         time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC),
		To:           time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC),
		Filter:       domain.Filter{Mode: "CW", Prefix: "SP", Band: domain.BandAll},
		TopN:         500,
		OutTXT:       "morse_runner_calls.txt",
		OutCSV:       "top_calls_sp_cw.csv",
		HTTPAddr:     ":8080",
		LogLevel:     "info",
		LogFormat:    "json",
		KafkaTopic:   "rbn-top-calls",

		ResultCacheSize: 32,
	}
}

// Load builds the configuration. profilePath may be empty; when it is, the
// RBN_CONFIG_FILE variable is consulted instead.
func Load(profilePath string) (*Config, error) {
	cfg := defaults()

	if profilePath == "" {
		profilePath = os.Getenv("RBN_CONFIG_FILE")
	}
	if profilePath != "" {
		if err := cfg.applyProfile(profilePath); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.DataDir, p.DataDir)
	setString(&c.BaseURL, p.BaseURL)
	setString(&c.UserAgent, p.UserAgent)
	setString(&c.Filter.Mode, p.Filter.Mode)
	setString(&c.Filter.Prefix, p.Filter.Prefix)
	setString(&c.Filter.Band, p.Filter.Band)
	setString(&c.OutTXT, p.Output.Text)
	setString(&c.OutCSV, p.Output.CSV)
	if p.FetchRetries != 0 {
		c.FetchRetries = p.FetchRetries
	}
	if p.TopN != 0 {
		c.TopN = p.TopN
	}
	if p.From != "" {
		if c.From, err = domain.ParseDay(p.From); err != nil {
			return fmt.Errorf("invalid from in %s: %w", path, err)
		}
	}
	if p.To != "" {
		if c.To, err = domain.ParseDay(p.To); err != nil {
			return fmt.Errorf("invalid to in %s: %w", path, err)
		}
	}
	if p.FetchBackoff != "" {
		if c.FetchBackoff, err = time.ParseDuration(p.FetchBackoff); err != nil {
			return fmt.Errorf("invalid fetch_backoff in %s: %w", path, err)
		}
	}
	if p.FetchTimeout != "" {
		if c.FetchTimeout, err = time.ParseDuration(p.FetchTimeout); err != nil {
			return fmt.Errorf("invalid fetch_timeout in %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return err
	}
	c.ShutdownTimeout = shutdownTimeout

	c.DataDir = sharedcfg.EnvOrDefault("RBN_DATA_DIR", c.DataDir)
	c.BaseURL = sharedcfg.EnvOrDefault("RBN_BASE_URL", c.BaseURL)
	c.UserAgent = sharedcfg.EnvOrDefault("RBN_USER_AGENT", c.UserAgent)
	c.Filter.Mode = sharedcfg.EnvOrDefault("RBN_MODE", c.Filter.Mode)
	c.Filter.Prefix = sharedcfg.EnvOrDefault("RBN_PREFIX", c.Filter.Prefix)
	c.Filter.Band = sharedcfg.EnvOrDefault("RBN_BAND", c.Filter.Band)
	c.OutTXT = sharedcfg.EnvOrDefault("RBN_OUT_TXT", c.OutTXT)
	c.OutCSV = sharedcfg.EnvOrDefault("RBN_OUT_CSV", c.OutCSV)
	c.HTTPAddr = sharedcfg.EnvOrDefault("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = sharedcfg.EnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = sharedcfg.EnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.KafkaTopic = sharedcfg.EnvOrDefault("KAFKA_TOPIC", c.KafkaTopic)

	if c.FetchRetries, err = envInt("RBN_FETCH_RETRIES", c.FetchRetries); err != nil {
		return err
	}
	if c.TopN, err = envInt("RBN_TOP_N", c.TopN); err != nil {
		return err
	}
	if c.ResultCacheSize, err = envInt("RESULT_CACHE_SIZE", c.ResultCacheSize); err != nil {
		return err
	}
	if c.FetchBackoff, err = envDuration("RBN_FETCH_BACKOFF", c.FetchBackoff); err != nil {
		return err
	}
	if c.FetchTimeout, err = envDuration("RBN_FETCH_TIMEOUT", c.FetchTimeout); err != nil {
		return err
	}
	if c.From, err = envDay("RBN_FROM", c.From); err != nil {
		return err
	}
	if c.To, err = envDay("RBN_TO", c.To); err != nil {
		return err
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
		c.KafkaEnabled = len(c.KafkaBrokers) > 0
	}
	return nil
}

// Validate checks settings that would otherwise fail mid-run.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("RBN_DATA_DIR is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("invalid RBN_BASE_URL: must be an absolute http(s) URL")
	}
	if c.FetchRetries < 1 || c.FetchRetries > 10 {
		return errors.New("invalid RBN_FETCH_RETRIES: must be between 1 and 10")
	}
	if c.FetchBackoff < 0 {
		return errors.New("invalid RBN_FETCH_BACKOFF: must not be negative")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("invalid RBN_FETCH_TIMEOUT: must be positive")
	}
	if c.To.Before(c.From) {
		return errors.New("invalid RBN_TO: must not be before RBN_FROM")
	}
	if c.Filter.Mode == "" {
		return errors.New("RBN_MODE is required")
	}
	if c.Filter.Prefix == "" {
		return errors.New("RBN_PREFIX is required")
	}
	if !slices.Contains(domain.Bands, c.Filter.Band) {
		return fmt.Errorf("invalid RBN_BAND %q: must be one of %s", c.Filter.Band, strings.Join(domain.Bands, ", "))
	}
	if c.TopN < 1 {
		return errors.New("invalid RBN_TOP_N: must be at least 1")
	}
	if c.ResultCacheSize < 1 {
		return errors.New("invalid RESULT_CACHE_SIZE: must be at least 1")
	}
	if c.KafkaEnabled && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envDay(key string, def time.Time) (time.Time, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := domain.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
