// Package insights delegates journal summarization to an external
// text-generation provider. The gateway never generates content itself.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"journalgate/internal/store"
)

// Generation is capped so a single summarize call has a bounded token cost.
const maxSummaryTokens = 512

var ErrNotConfigured = errors.New("summarizer not configured")

type Summarizer interface {
	Summarize(ctx context.Context, entries []store.Entry) (string, error)
}

type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISummarizer(apiKey, model string) *OpenAISummarizer {
	return &OpenAISummarizer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, entries []store.Entry) (string, error) {
	if len(entries) == 0 {
		return "No entries in the requested period.", nil
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "## %s\n%s\n\n", e.Date, e.Content)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: maxSummaryTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize personal journal entries. Write a short, factual summary of recurring themes and notable moments. Do not invent events.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: b.String(),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("summarize: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
