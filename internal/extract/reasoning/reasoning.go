// Package reasoning extracts candidate memories from an LLM's internal
// reasoning blocks by asking a chat model to return them as a small JSON
// array, grounded in felixgeelhaar-simon's OpenAIProvider.Chat wiring.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/patternforge/hebbian/internal/extract"
	"github.com/patternforge/hebbian/internal/models"
)

const systemPrompt = `You extract durable, reusable insights from an AI agent's internal reasoning trace.
Return a JSON array of objects with fields: domain, pattern_type, title, detail, tags.
pattern_type must be one of: rule, directive, command, fact, discovery, failure, solution, config, benchmark, bug-insight, decision, spec, correction, conclusion.
Omit routine status lines and thinking-aloud filler. Return [] if nothing durable is present.`

// Extractor asks a chat model to distill a reasoning block into candidates.
type Extractor struct {
	client *openai.Client
	model  string
	source string
}

func New(client *openai.Client, model, source string) *Extractor {
	if model == "" {
		model = openai.GPT4TurboPreview
	}
	return &Extractor{client: client, model: model, source: source}
}

type rawCandidate struct {
	Domain      string   `json:"domain"`
	PatternType string   `json:"pattern_type"`
	Title       string   `json:"title"`
	Detail      string   `json:"detail"`
	Tags        []string `json:"tags"`
}

func (e *Extractor) Extract(reasoningBlock string) ([]models.Candidate, error) {
	return e.ExtractContext(context.Background(), reasoningBlock)
}

// ExtractContext is the context-aware form; Extract satisfies
// extract.Extractor for callers that don't need to propagate a deadline.
func (e *Extractor) ExtractContext(ctx context.Context, reasoningBlock string) ([]models.Candidate, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: reasoningBlock},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reasoning extraction completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	var raw []rawCandidate
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("decode reasoning extraction response: %w", err)
	}

	var candidates []models.Candidate
	for _, r := range raw {
		if len(r.Detail) < extract.MinDetailLength {
			continue
		}
		pt := models.PatternType(r.PatternType)
		var ptPtr *models.PatternType
		if pt.IsValid() {
			ptPtr = &pt
		}
		candidates = append(candidates, models.Candidate{
			Domain:      r.Domain,
			PatternType: ptPtr,
			Title:       r.Title,
			Detail:      r.Detail,
			Source:      e.source,
			Tags:        r.Tags,
		})
	}

	return candidates, nil
}
