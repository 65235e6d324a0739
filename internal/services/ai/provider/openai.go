package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

type openAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAI builds a generator for any OpenAI-compatible chat completions
// endpoint. Local servers usually accept an empty API key.
func NewOpenAI(cfg Config) (Generator, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &openAIGenerator{client: openai.NewClient(opts...), model: model}, nil
}

func (g *openAIGenerator) Generate(ctx context.Context, input GenerateInput) (GenerateResult, error) {
	prompt, err := validateInput(input)
	if err != nil {
		return GenerateResult{}, err
	}
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               g.model,
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature:         openai.Float(defaultTemperature),
		MaxCompletionTokens: openai.Int(defaultMaxOutputTokens),
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("openai generate: %w", err)
	}
	if len(completion.Choices) == 0 {
		return GenerateResult{}, fmt.Errorf("openai returned no choices")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return GenerateResult{}, fmt.Errorf("openai returned empty output")
	}
	return GenerateResult{Text: text}, nil
}
