package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults used throughout the framework
const (
	// DefaultArtifactCharLimit caps the text taken from one artifact
	DefaultArtifactCharLimit = 50000

	// DefaultContextCharBudget caps the aggregated artifact text sent to a remote model
	DefaultContextCharBudget = 120000

	// DefaultLocalContextCharBudget is the smaller budget used for local models
	DefaultLocalContextCharBudget = 60000

	// DefaultLocalNumCtx is the context window requested from a local model, in tokens
	DefaultLocalNumCtx = 32768

	// DefaultLocalModelURL is the base URL of the local model server
	DefaultLocalModelURL = "http://localhost:11434"

	// DefaultModelTimeout bounds one model call
	DefaultModelTimeout = 10 * time.Minute

	// DefaultHTTPTimeout is the default timeout for Grafana and token requests
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultLogTailLines is the number of container log lines fetched per container
	DefaultLogTailLines = 5000

	// DefaultLogFetchTimeout bounds one container log fetch
	DefaultLogFetchTimeout = 60 * time.Second

	// DefaultMaxConcurrentRuns bounds concurrently analysed tests and exported panels
	DefaultMaxConcurrentRuns = 2

	// DefaultStoragePath is the artifact storage root
	DefaultStoragePath = "storage"

	// DefaultDBPath is the SQLite database file
	DefaultDBPath = "perf-report.db"
)

// Environment variable names for configuration overrides
const (
	EnvArtifactCharLimit      = "PERF_REPORT_ARTIFACT_CHAR_LIMIT"
	EnvContextCharBudget      = "PERF_REPORT_CONTEXT_CHAR_BUDGET"
	EnvLocalContextCharBudget = "PERF_REPORT_LOCAL_CONTEXT_CHAR_BUDGET"
	EnvLocalNumCtx            = "PERF_REPORT_LOCAL_NUM_CTX"
	EnvLocalModelURL          = "PERF_REPORT_LOCAL_MODEL_URL"
	EnvModelTimeout           = "PERF_REPORT_MODEL_TIMEOUT"
	EnvHTTPTimeout            = "PERF_REPORT_HTTP_TIMEOUT"
	EnvLogTailLines           = "PERF_REPORT_LOG_TAIL_LINES"
	EnvLogFetchTimeout        = "PERF_REPORT_LOG_FETCH_TIMEOUT"
	EnvMaxConcurrentRuns      = "PERF_REPORT_MAX_CONCURRENT_RUNS"
	EnvStoragePath            = "PERF_REPORT_STORAGE_PATH"
	EnvDBPath                 = "PERF_REPORT_DB_PATH"
	EnvPDFFont                = "PERF_REPORT_PDF_FONT"
)

// Config holds framework configuration with optional overrides
type Config struct {
	// Context budgets, in characters
	ArtifactCharLimit      int
	ContextCharBudget      int
	LocalContextCharBudget int

	// Local model
	LocalNumCtx   int
	LocalModelURL string

	// Timeouts
	ModelTimeout    time.Duration
	HTTPTimeout     time.Duration
	LogFetchTimeout time.Duration

	LogTailLines      int64
	MaxConcurrentRuns int

	// Locations
	StoragePath string
	DBPath      string

	// PDFFont is a UTF-8 TrueType font for PDF reports. Empty uses the core
	// Latin-1 font.
	PDFFont string
}

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		ArtifactCharLimit:      DefaultArtifactCharLimit,
		ContextCharBudget:      DefaultContextCharBudget,
		LocalContextCharBudget: DefaultLocalContextCharBudget,
		LocalNumCtx:            DefaultLocalNumCtx,
		LocalModelURL:          DefaultLocalModelURL,
		ModelTimeout:           DefaultModelTimeout,
		HTTPTimeout:            DefaultHTTPTimeout,
		LogFetchTimeout:        DefaultLogFetchTimeout,
		LogTailLines:           DefaultLogTailLines,
		MaxConcurrentRuns:      DefaultMaxConcurrentRuns,
		StoragePath:            DefaultStoragePath,
		DBPath:                 DefaultDBPath,
	}
}

// FromEnv returns a Config with values from environment variables, falling back to defaults
func FromEnv() *Config {
	cfg := Default()

	envInt(EnvArtifactCharLimit, &cfg.ArtifactCharLimit)
	envInt(EnvContextCharBudget, &cfg.ContextCharBudget)
	envInt(EnvLocalContextCharBudget, &cfg.LocalContextCharBudget)
	envInt(EnvLocalNumCtx, &cfg.LocalNumCtx)
	envInt(EnvMaxConcurrentRuns, &cfg.MaxConcurrentRuns)

	if v := os.Getenv(EnvLogTailLines); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.LogTailLines = n
		}
	}

	envDuration(EnvModelTimeout, &cfg.ModelTimeout)
	envDuration(EnvHTTPTimeout, &cfg.HTTPTimeout)
	envDuration(EnvLogFetchTimeout, &cfg.LogFetchTimeout)

	if v := os.Getenv(EnvLocalModelURL); v != "" {
		cfg.LocalModelURL = v
	}
	if v := os.Getenv(EnvStoragePath); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPDFFont); v != "" {
		cfg.PDFFont = v
	}

	return cfg
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}

// BudgetFor returns the context budget for a backend
func (c *Config) BudgetFor(local bool) int {
	if local {
		return c.LocalContextCharBudget
	}
	return c.ContextCharBudget
}

// WithArtifactCharLimit returns a copy with updated per-artifact limit
func (c *Config) WithArtifactCharLimit(n int) *Config {
	cp := *c
	cp.ArtifactCharLimit = n
	return &cp
}

// WithContextCharBudget returns a copy with updated context budget
func (c *Config) WithContextCharBudget(n int) *Config {
	cp := *c
	cp.ContextCharBudget = n
	return &cp
}

// WithLocalContextCharBudget returns a copy with updated local-model budget
func (c *Config) WithLocalContextCharBudget(n int) *Config {
	cp := *c
	cp.LocalContextCharBudget = n
	return &cp
}

// WithModelTimeout returns a copy with updated model timeout
func (c *Config) WithModelTimeout(d time.Duration) *Config {
	cp := *c
	cp.ModelTimeout = d
	return &cp
}

// WithHTTPTimeout returns a copy with updated HTTP timeout
func (c *Config) WithHTTPTimeout(d time.Duration) *Config {
	cp := *c
	cp.HTTPTimeout = d
	return &cp
}

// WithLogTailLines returns a copy with updated log tail lines
func (c *Config) WithLogTailLines(n int64) *Config {
	cp := *c
	cp.LogTailLines = n
	return &cp
}

// WithMaxConcurrentRuns returns a copy with updated max concurrent runs
func (c *Config) WithMaxConcurrentRuns(n int) *Config {
	cp := *c
	cp.MaxConcurrentRuns = n
	return &cp
}

// WithStoragePath returns a copy with updated storage root
func (c *Config) WithStoragePath(p string) *Config {
	cp := *c
	cp.StoragePath = p
	return &cp
}

// WithDBPath returns a copy with updated database path
func (c *Config) WithDBPath(p string) *Config {
	cp := *c
	cp.DBPath = p
	return &cp
}

// WithPDFFont returns a copy with updated PDF font path
func (c *Config) WithPDFFont(p string) *Config {
	cp := *c
	cp.PDFFont = p
	return &cp
}
