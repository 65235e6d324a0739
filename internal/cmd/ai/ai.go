// Package ai parses AI command flags and launches the moderation sidecar.
package ai

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/skillswap/internal/platform/cmd"
	"github.com/louisbranch/skillswap/internal/platform/config"
	server "github.com/louisbranch/skillswap/internal/services/ai/app"
	"github.com/louisbranch/skillswap/internal/services/ai/provider"
)

// Config holds AI command configuration.
type Config struct {
	HTTPAddr       string `env:"SKILLSWAP_AI_HTTP_ADDR"       envDefault:":8090"`
	AllowedOrigins string `env:"SKILLSWAP_AI_ALLOWED_ORIGINS" envDefault:"*"`
	Provider       string `env:"SKILLSWAP_AI_PROVIDER"        envDefault:"gemini"`
	APIKey         string `env:"SKILLSWAP_AI_API_KEY"`
	BaseURL        string `env:"SKILLSWAP_AI_BASE_URL"`
	Model          string `env:"SKILLSWAP_AI_MODEL"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "AI HTTP listen address")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "LLM provider (gemini, openai)")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "provider base URL override")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "provider model name")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the moderation and summarization service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAI, func(ctx context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:       cfg.HTTPAddr,
			AllowedOrigins: config.SplitList(cfg.AllowedOrigins, "*"),
			Provider: provider.Config{
				Provider: cfg.Provider,
				APIKey:   cfg.APIKey,
				BaseURL:  cfg.BaseURL,
				Model:    cfg.Model,
			},
		}); err != nil {
			return fmt.Errorf("serve ai: %w", err)
		}
		return nil
	})
}
