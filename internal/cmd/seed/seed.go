// Package seed parses seed command flags and loads demo data into a database.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	entrypoint "github.com/louisbranch/skillswap/internal/platform/cmd"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage/sqlite"
	"github.com/louisbranch/skillswap/internal/tools/seed"
)

// Config holds seed command configuration.
type Config struct {
	DBPath   string `env:"SKILLSWAP_DB_PATH"       envDefault:"data/skillswap.db"`
	Manifest string `env:"SKILLSWAP_SEED_MANIFEST"`
	Password string `env:"SKILLSWAP_SEED_PASSWORD" envDefault:"skillswap-demo"`
	Verbose  bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "marketplace SQLite database path")
	fs.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "seed manifest JSON path (default: embedded demo)")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "password for manifest users without one")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context) error {
		manifest, err := seed.LoadManifest(cfg.Manifest)
		if err != nil {
			return err
		}
		path := strings.TrimSpace(cfg.DBPath)
		if path == "" {
			return fmt.Errorf("database path is required")
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("open marketplace store: %w", err)
		}
		defer store.Close()

		runner, err := seed.NewRunner(store, seed.Config{
			Password: cfg.Password,
			Verbose:  cfg.Verbose,
			Out:      out,
		})
		if err != nil {
			return err
		}
		if _, err := runner.Run(ctx, manifest); err != nil {
			return err
		}
		return nil
	})
}
