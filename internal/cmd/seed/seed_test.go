package seed

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/skillswap.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Manifest != "" {
		t.Fatalf("expected embedded manifest by default, got %q", cfg.Manifest)
	}
	if cfg.Password != "skillswap-demo" {
		t.Fatalf("expected default password, got %q", cfg.Password)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("SKILLSWAP_DB_PATH", "env.db")
	t.Setenv("SKILLSWAP_SEED_MANIFEST", "env.json")

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-manifest", "flag.json", "-v"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "env.db" {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
	if cfg.Manifest != "flag.json" {
		t.Fatalf("expected flag manifest, got %q", cfg.Manifest)
	}
	if !cfg.Verbose {
		t.Fatal("expected verbose flag to be true")
	}
}

func TestRunSeedsDatabase(t *testing.T) {
	t.Setenv("SKILLSWAP_OTEL_ENDPOINT", "")

	path := filepath.Join(t.TempDir(), "nested", "skillswap.db")
	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, Password: "demo-password"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
	if !strings.Contains(out.String(), "4 users") {
		t.Fatalf("expected seeded summary, got %q", out.String())
	}
}

func TestRunRejectsMissingManifest(t *testing.T) {
	t.Setenv("SKILLSWAP_OTEL_ENDPOINT", "")

	err := Run(context.Background(), Config{
		DBPath:   filepath.Join(t.TempDir(), "skillswap.db"),
		Manifest: filepath.Join(t.TempDir(), "missing.json"),
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "read manifest") {
		t.Fatalf("expected read manifest error, got %v", err)
	}
}
