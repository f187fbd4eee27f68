// Package llm provides the generation gateway: a live OpenAI-compatible
// client and a deterministic offline mock, both producing complete papers
// from a specification in a single attempt.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kvexam/papergen/internal/llm/prompts"
	"github.com/kvexam/papergen/internal/model"
)

// Client generates papers through an OpenAI-compatible chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a live generation client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable before the server starts taking
// sessions.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// Generate requests one complete paper for the specification. The reply must
// parse into the paper schema exactly; anything else is a hard failure and no
// partial paper is ever returned.
func (c *Client) Generate(ctx context.Context, spec model.Specification) (*model.Paper, error) {
	system, err := prompts.System()
	if err != nil {
		return nil, err
	}
	user, err := prompts.Generation(spec)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	paper, err := parsePaper([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}
	return paper, nil
}

// parsePaper decodes and structurally validates a gateway reply. Mark totals
// are the gateway's responsibility and are not verified here; the shape is.
func parsePaper(raw []byte) (*model.Paper, error) {
	var paper model.Paper
	if err := json.Unmarshal(raw, &paper); err != nil {
		return nil, err
	}
	if len(paper.Questions) == 0 {
		return nil, fmt.Errorf("no questions in response")
	}
	seen := make(map[string]bool, len(paper.Questions))
	for i, q := range paper.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d has no id", i)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		if !model.ValidQuestionType(string(q.Type)) {
			return nil, fmt.Errorf("question %s has invalid type %q", q.ID, q.Type)
		}
		if q.Type == model.TypeMCQ && len(q.Options) != 4 {
			return nil, fmt.Errorf("MCQ question %s has %d options, want 4", q.ID, len(q.Options))
		}
	}
	for i, a := range paper.AnswerKey {
		if a.ID == "" {
			return nil, fmt.Errorf("answer key entry %d has no id", i)
		}
		if !seen[a.ID] {
			return nil, fmt.Errorf("answer key entry %q has no matching question", a.ID)
		}
	}
	return &paper, nil
}
