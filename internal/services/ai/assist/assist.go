// Package assist turns single-turn LLM generations into moderation verdicts
// and meeting summaries.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/skillswap/internal/services/ai/provider"
)

// Moderation labels.
const (
	LabelSafe   = "SAFE"
	LabelUnsafe = "UNSAFE"
)

const moderationTemplate = "You are an AI moderation assistant. Analyse the following message for inappropriate " +
	"content (harassment, hate speech, adult content). Respond with 'SAFE' or 'UNSAFE' " +
	"and list categories flagged if unsafe.\n\nMessage: %s"

const summaryTemplate = "You are a meeting summary assistant. Summarise the following conversation transcript, " +
	"highlighting key points, decisions, and any action items.\n\nTranscript: %s"

// ErrEmptyInput reports blank text or transcript input.
var ErrEmptyInput = errors.New("input cannot be empty")

// Verdict is the outcome of moderating one message.
type Verdict struct {
	Label      string `json:"label"`
	Categories string `json:"categories"`
}

// Unsafe reports whether the message was flagged.
func (v Verdict) Unsafe() bool {
	return v.Label == LabelUnsafe
}

// Assistant runs the moderation and summary prompts against a generator.
type Assistant struct {
	generator provider.Generator
}

// New builds an assistant over a generator.
func New(generator provider.Generator) (*Assistant, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	return &Assistant{generator: generator}, nil
}

// Moderate classifies text as SAFE or UNSAFE.
func (a *Assistant) Moderate(ctx context.Context, text string) (Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return Verdict{}, ErrEmptyInput
	}
	result, err := a.generator.Generate(ctx, provider.GenerateInput{Prompt: fmt.Sprintf(moderationTemplate, text)})
	if err != nil {
		return Verdict{}, fmt.Errorf("moderate: %w", err)
	}
	return ParseVerdict(result.Text)
}

// Summarize returns a summary of a conversation transcript.
func (a *Assistant) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", ErrEmptyInput
	}
	result, err := a.generator.Generate(ctx, provider.GenerateInput{Prompt: fmt.Sprintf(summaryTemplate, transcript)})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	summary := strings.TrimSpace(result.Text)
	if summary == "" {
		return "", fmt.Errorf("summarize: model returned empty summary")
	}
	return summary, nil
}

// ParseVerdict reads the label from the first line of a model response and
// the flagged categories from the rest. Unrecognized labels count as SAFE.
func ParseVerdict(raw string) (Verdict, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Verdict{}, fmt.Errorf("moderate: model returned empty response")
	}
	lines := strings.Split(raw, "\n")
	label := strings.ToUpper(strings.TrimSpace(lines[0]))
	if label != LabelSafe && label != LabelUnsafe {
		log.Printf("ai: unexpected moderation label=%q", label)
		return Verdict{Label: LabelSafe}, nil
	}
	categories := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if line = strings.TrimSpace(line); line != "" {
			categories = append(categories, line)
		}
	}
	return Verdict{Label: label, Categories: strings.Join(categories, "\n")}, nil
}
