package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/colonyops/seam/internal/core/assistant"
	"github.com/colonyops/seam/internal/core/chat"
)

const systemPrompt = `You are a repository-aware coding assistant. Answer questions
about the repository using the provided snippets. When the user asks for a code
change, call the create_pr function with a title, a summary, and a plan of
file-level instructions.`

// createPRSchema is the JSON schema for the create_pr function definition.
var createPRSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"summary": {"type": "string"},
		"plan": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"file_path": {"type": "string"},
					"instructions": {"type": "string"}
				},
				"required": ["file_path", "instructions"]
			}
		},
		"branch": {"type": "string"}
	},
	"required": ["title", "summary", "plan"]
}`)

// OpenAIStreamer streams chat completions straight from an
// OpenAI-compatible API instead of the backend's chat proxy. Search and PR
// creation still go through the backend.
type OpenAIStreamer struct {
	client *openai.Client
	model  string
}

var _ assistant.ChatStreamer = (*OpenAIStreamer)(nil)

// NewOpenAIStreamer creates a streamer for the given API key, model, and
// optional base URL override.
func NewOpenAIStreamer(apiKey, baseURL, model string) *OpenAIStreamer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIStreamer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// StreamChat opens a streaming completion with the create_pr function
// available and maps its deltas onto StreamEvents.
func (s *OpenAIStreamer) StreamChat(ctx context.Context, history chat.History, snippets []chat.Snippet) (assistant.Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: buildMessages(history, snippets),
		Functions: []openai.FunctionDefinition{{
			Name:        assistant.ActionCreatePR,
			Description: "Propose a pull request implementing the user's request.",
			Parameters:  createPRSchema,
		}},
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w", err)
	}

	return &openaiStream{inner: stream}, nil
}

func buildMessages(history chat.History, snippets []chat.Snippet) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt + snippetContext(snippets),
	}}

	for _, turn := range history {
		if turn.User != nil {
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: *turn.User,
			})
		}
		if turn.Assistant != nil && *turn.Assistant != "" {
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: *turn.Assistant,
			})
		}
	}

	return msgs
}

func snippetContext(snippets []chat.Snippet) string {
	if len(snippets) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nRelevant repository snippets:\n")
	for _, sn := range snippets {
		fmt.Fprintf(&b, "\n%s\n```\n%s\n```\n", sn.Denotation, sn.Content)
	}
	return b.String()
}

// openaiStream adapts an openai completion stream to assistant.Stream.
type openaiStream struct {
	inner *openai.ChatCompletionStream
}

var _ assistant.Stream = (*openaiStream)(nil)

// Recv maps the next delta onto a StreamEvent. io.EOF passes through at
// stream end.
func (s *openaiStream) Recv() (assistant.StreamEvent, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			return assistant.StreamEvent{}, err
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta

		ev := assistant.StreamEvent{Content: delta.Content}
		if delta.FunctionCall != nil {
			ev.FunctionCall = &assistant.FunctionCallDelta{
				Name:      delta.FunctionCall.Name,
				Arguments: delta.FunctionCall.Arguments,
			}
		}
		if ev.Content == "" && ev.FunctionCall == nil {
			continue
		}
		return ev, nil
	}
}

// Close closes the underlying stream.
func (s *openaiStream) Close() error {
	s.inner.Close()
	return nil
}
