// Package provider adapts LLM vendors behind one text generation contract.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Provider names accepted by New.
const (
	NameGemini = "gemini"
	NameOpenAI = "openai"
)

// DefaultGeminiModel is used when no model is configured for gemini.
const DefaultGeminiModel = "gemini-2.0-flash-001"

// DefaultOpenAIModel is used when no model is configured for openai.
const DefaultOpenAIModel = "gpt-4o-mini"

const (
	defaultTemperature     = 0.2
	defaultMaxOutputTokens = 2048
)

// GenerateInput is one single-turn prompt.
type GenerateInput struct {
	Prompt string
}

// GenerateResult carries the model text output.
type GenerateResult struct {
	Text string
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, input GenerateInput) (GenerateResult, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	// HTTPClient is optional; vendors fall back to their default transport.
	HTTPClient *http.Client
}

// New builds the generator named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", NameGemini:
		return NewGemini(ctx, cfg)
	case NameOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

func validateInput(input GenerateInput) (string, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	return prompt, nil
}
