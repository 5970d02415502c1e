package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ArtifactCharLimit != DefaultArtifactCharLimit {
		t.Errorf("expected ArtifactCharLimit %d, got %d", DefaultArtifactCharLimit, cfg.ArtifactCharLimit)
	}
	if cfg.ContextCharBudget != DefaultContextCharBudget {
		t.Errorf("expected ContextCharBudget %d, got %d", DefaultContextCharBudget, cfg.ContextCharBudget)
	}
	if cfg.LocalContextCharBudget >= cfg.ContextCharBudget {
		t.Errorf("expected local budget %d below remote budget %d", cfg.LocalContextCharBudget, cfg.ContextCharBudget)
	}
	if cfg.ModelTimeout != DefaultModelTimeout {
		t.Errorf("expected ModelTimeout %v, got %v", DefaultModelTimeout, cfg.ModelTimeout)
	}
	if cfg.MaxConcurrentRuns != DefaultMaxConcurrentRuns {
		t.Errorf("expected MaxConcurrentRuns %d, got %d", DefaultMaxConcurrentRuns, cfg.MaxConcurrentRuns)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, name := range []string{EnvArtifactCharLimit, EnvContextCharBudget, EnvModelTimeout, EnvStoragePath, EnvDBPath, EnvPDFFont} {
		t.Setenv(name, "")
	}

	cfg := FromEnv()

	if cfg.ArtifactCharLimit != DefaultArtifactCharLimit {
		t.Errorf("expected ArtifactCharLimit %d, got %d", DefaultArtifactCharLimit, cfg.ArtifactCharLimit)
	}
	if cfg.StoragePath != DefaultStoragePath {
		t.Errorf("expected StoragePath %s, got %s", DefaultStoragePath, cfg.StoragePath)
	}
	if cfg.DBPath != DefaultDBPath {
		t.Errorf("expected DBPath %s, got %s", DefaultDBPath, cfg.DBPath)
	}
	if cfg.PDFFont != "" {
		t.Errorf("expected no PDF font by default, got %q", cfg.PDFFont)
	}
}

func TestFromEnv_CustomValues(t *testing.T) {
	t.Setenv(EnvArtifactCharLimit, "1000")
	t.Setenv(EnvContextCharBudget, "5000")
	t.Setenv(EnvLocalContextCharBudget, "2000")
	t.Setenv(EnvLocalNumCtx, "8192")
	t.Setenv(EnvLocalModelURL, "http://ollama:11434")
	t.Setenv(EnvModelTimeout, "2m")
	t.Setenv(EnvHTTPTimeout, "5s")
	t.Setenv(EnvLogTailLines, "100")
	t.Setenv(EnvLogFetchTimeout, "10s")
	t.Setenv(EnvMaxConcurrentRuns, "4")
	t.Setenv(EnvStoragePath, "/data/storage")
	t.Setenv(EnvDBPath, "/data/reports.db")
	t.Setenv(EnvPDFFont, "/usr/share/fonts/DejaVuSans.ttf")

	cfg := FromEnv()

	if cfg.ArtifactCharLimit != 1000 {
		t.Errorf("expected ArtifactCharLimit 1000, got %d", cfg.ArtifactCharLimit)
	}
	if cfg.ContextCharBudget != 5000 {
		t.Errorf("expected ContextCharBudget 5000, got %d", cfg.ContextCharBudget)
	}
	if cfg.LocalContextCharBudget != 2000 {
		t.Errorf("expected LocalContextCharBudget 2000, got %d", cfg.LocalContextCharBudget)
	}
	if cfg.LocalNumCtx != 8192 {
		t.Errorf("expected LocalNumCtx 8192, got %d", cfg.LocalNumCtx)
	}
	if cfg.LocalModelURL != "http://ollama:11434" {
		t.Errorf("expected LocalModelURL override, got %s", cfg.LocalModelURL)
	}
	if cfg.ModelTimeout != 2*time.Minute {
		t.Errorf("expected ModelTimeout 2m, got %v", cfg.ModelTimeout)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("expected HTTPTimeout 5s, got %v", cfg.HTTPTimeout)
	}
	if cfg.LogTailLines != 100 {
		t.Errorf("expected LogTailLines 100, got %d", cfg.LogTailLines)
	}
	if cfg.LogFetchTimeout != 10*time.Second {
		t.Errorf("expected LogFetchTimeout 10s, got %v", cfg.LogFetchTimeout)
	}
	if cfg.MaxConcurrentRuns != 4 {
		t.Errorf("expected MaxConcurrentRuns 4, got %d", cfg.MaxConcurrentRuns)
	}
	if cfg.StoragePath != "/data/storage" || cfg.DBPath != "/data/reports.db" {
		t.Errorf("unexpected locations %s %s", cfg.StoragePath, cfg.DBPath)
	}
	if cfg.PDFFont != "/usr/share/fonts/DejaVuSans.ttf" {
		t.Errorf("expected PDFFont override, got %q", cfg.PDFFont)
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv(EnvModelTimeout, "invalid")
	t.Setenv(EnvMaxConcurrentRuns, "not-a-number")
	t.Setenv(EnvContextCharBudget, "-5")
	t.Setenv(EnvLogTailLines, "0")

	cfg := FromEnv()

	if cfg.ModelTimeout != DefaultModelTimeout {
		t.Errorf("expected default ModelTimeout, got %v", cfg.ModelTimeout)
	}
	if cfg.MaxConcurrentRuns != DefaultMaxConcurrentRuns {
		t.Errorf("expected default MaxConcurrentRuns, got %d", cfg.MaxConcurrentRuns)
	}
	if cfg.ContextCharBudget != DefaultContextCharBudget {
		t.Errorf("expected default ContextCharBudget, got %d", cfg.ContextCharBudget)
	}
	if cfg.LogTailLines != DefaultLogTailLines {
		t.Errorf("expected default LogTailLines, got %d", cfg.LogTailLines)
	}
}

func TestBudgetFor(t *testing.T) {
	cfg := Default().WithContextCharBudget(9000).WithLocalContextCharBudget(3000)

	if got := cfg.BudgetFor(true); got != 3000 {
		t.Errorf("expected local budget 3000, got %d", got)
	}
	if got := cfg.BudgetFor(false); got != 9000 {
		t.Errorf("expected remote budget 9000, got %d", got)
	}
}

func TestWithModelTimeout(t *testing.T) {
	cfg := Default()
	newCfg := cfg.WithModelTimeout(time.Minute)

	if cfg.ModelTimeout != DefaultModelTimeout {
		t.Error("original config was modified")
	}
	if newCfg.ModelTimeout != time.Minute {
		t.Errorf("expected ModelTimeout 1m, got %v", newCfg.ModelTimeout)
	}
}

func TestChainedWith(t *testing.T) {
	cfg := Default().
		WithArtifactCharLimit(10).
		WithHTTPTimeout(3 * time.Second).
		WithLogTailLines(50).
		WithMaxConcurrentRuns(8).
		WithStoragePath("/tmp/s").
		WithDBPath(":memory:")

	if cfg.ArtifactCharLimit != 10 {
		t.Errorf("expected ArtifactCharLimit 10, got %d", cfg.ArtifactCharLimit)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("expected HTTPTimeout 3s, got %v", cfg.HTTPTimeout)
	}
	if cfg.LogTailLines != 50 {
		t.Errorf("expected LogTailLines 50, got %d", cfg.LogTailLines)
	}
	if cfg.MaxConcurrentRuns != 8 {
		t.Errorf("expected MaxConcurrentRuns 8, got %d", cfg.MaxConcurrentRuns)
	}
	if cfg.StoragePath != "/tmp/s" || cfg.DBPath != ":memory:" {
		t.Errorf("unexpected locations %s %s", cfg.StoragePath, cfg.DBPath)
	}
}
