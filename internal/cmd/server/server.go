// Package server parses marketplace command flags and launches the API process.
package server

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/skillswap/internal/platform/cmd"
	"github.com/louisbranch/skillswap/internal/platform/config"
	marketplace "github.com/louisbranch/skillswap/internal/services/marketplace/app"
)

// Config holds marketplace command configuration.
type Config struct {
	HTTPAddr           string        `env:"SKILLSWAP_HTTP_ADDR"             envDefault:":8080"`
	DBPath             string        `env:"SKILLSWAP_DB_PATH"               envDefault:"data/skillswap.db"`
	JWTSecret          string        `env:"SKILLSWAP_JWT_SECRET"`
	TokenTTL           time.Duration `env:"SKILLSWAP_TOKEN_TTL"             envDefault:"24h"`
	AllowedOrigins     string        `env:"SKILLSWAP_ALLOWED_ORIGINS"`
	CookieSecure       bool          `env:"SKILLSWAP_COOKIE_SECURE"         envDefault:"false"`
	MeetingBaseURL     string        `env:"SKILLSWAP_MEETING_BASE_URL"      envDefault:"https://meet.jit.si"`
	AIServiceURL       string        `env:"SKILLSWAP_AI_SERVICE_URL"`
	ModerationFailOpen bool          `env:"SKILLSWAP_MODERATION_FAIL_OPEN"  envDefault:"true"`
	SweepInterval      time.Duration `env:"SKILLSWAP_SWEEP_INTERVAL"        envDefault:"10m"`
	SwapPendingTTL     time.Duration `env:"SKILLSWAP_SWAP_PENDING_TTL"      envDefault:"336h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "marketplace HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "marketplace SQLite database path")
	fs.StringVar(&cfg.AIServiceURL, "ai-url", cfg.AIServiceURL, "AI moderation service base URL (empty disables moderation)")
	fs.BoolVar(&cfg.ModerationFailOpen, "moderation-fail-open", cfg.ModerationFailOpen, "accept messages when moderation is unavailable")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "interval between expiry sweeps")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the marketplace app and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		if err := marketplace.Run(ctx, marketplace.Config{
			HTTPAddr:           cfg.HTTPAddr,
			DBPath:             cfg.DBPath,
			JWTSecret:          cfg.JWTSecret,
			TokenTTL:           cfg.TokenTTL,
			AllowedOrigins:     config.SplitList(cfg.AllowedOrigins),
			CookieSecure:       cfg.CookieSecure,
			MeetingBaseURL:     cfg.MeetingBaseURL,
			AIBaseURL:          cfg.AIServiceURL,
			ModerationFailOpen: cfg.ModerationFailOpen,
			SweepInterval:      cfg.SweepInterval,
			SwapPendingTTL:     cfg.SwapPendingTTL,
		}); err != nil {
			return fmt.Errorf("serve marketplace: %w", err)
		}
		return nil
	})
}
