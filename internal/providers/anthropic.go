package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmylchreest/summarize/internal/llmclient"
)

const anthropicAPIVersion = "2023-06-01"

// defaultAnthropicMaxTokens is sent when a caller doesn't set
// MaxOutputTokens; the Messages API requires max_tokens on every request,
// unlike the OpenAI shapes where it is optional.
const defaultAnthropicMaxTokens = 4096

// AnthropicProvider implements llmclient.Provider against Anthropic's
// Messages API.
type AnthropicProvider struct {
	apiKey    string
	transport *httpTransport
}

// NewAnthropic builds the Anthropic provider. baseURL defaults to
// Anthropic's own API; a custom value supports API-compatible proxies.
func NewAnthropic(doer Doer, baseURL, apiKey string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &AnthropicProvider{
		apiKey: apiKey,
		transport: newHTTPTransport(doer, baseURL, map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": anthropicAPIVersion,
		}),
	}
}

func (p *AnthropicProvider) Name() string        { return "anthropic" }
func (p *AnthropicProvider) HasCredentials() bool { return p.apiKey != "" }

func (p *AnthropicProvider) LanguageModel(modelName string) (llmclient.LanguageModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("anthropic: empty model name")
	}
	return &anthropicModel{provider: p, modelID: modelName}, nil
}

type anthropicModel struct {
	provider *AnthropicProvider
	modelID  string
}

func (m *anthropicModel) Provider() string { return "anthropic" }
func (m *anthropicModel) ModelID() string  { return m.modelID }

func (m *anthropicModel) InputTokenBudget() int {
	return defaultInputTokenBudget
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
	Temperature *float64         `json:"temperature,omitempty"`
	Stream    bool               `json:"stream"`
}

type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage anthropicUsage `json:"usage"`
}

// anthropicStreamEvent covers the message_start/content_block_delta/
// message_delta/message_stop union this client needs: incremental text and
// the running usage totals, which the Messages API splits across the
// message_start (input_tokens) and message_delta (output_tokens) events.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type         string `json:"type"`
		Text         string `json:"text"`
		StopReason   string `json:"stop_reason"`
	} `json:"delta,omitempty"`
	Message *struct {
		Usage anthropicUsage `json:"usage"`
	} `json:"message,omitempty"`
	Usage *anthropicUsage `json:"usage,omitempty"`
}

func (m *anthropicModel) maxTokens(opts llmclient.GenerateOptions) int {
	if opts.MaxOutputTokens != nil && *opts.MaxOutputTokens > 0 {
		return *opts.MaxOutputTokens
	}
	return defaultAnthropicMaxTokens
}

func (m *anthropicModel) requestBody(opts llmclient.GenerateOptions, stream bool) anthropicRequest {
	return anthropicRequest{
		Model:       m.modelID,
		System:      opts.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: opts.Prompt}},
		MaxTokens:   m.maxTokens(opts),
		Temperature: opts.Temperature,
		Stream:      stream,
	}
}

func (m *anthropicModel) DoGenerate(ctx context.Context, opts llmclient.GenerateOptions) (*llmclient.GenerateResult, error) {
	var resp anthropicResponse
	if err := m.provider.transport.postJSON(ctx, "/messages", m.requestBody(opts, false), &resp); err != nil {
		return nil, err
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	total := resp.Usage.InputTokens + resp.Usage.OutputTokens
	return &llmclient.GenerateResult{
		Text: text,
		Usage: llmclient.Usage{
			PromptTokens:     ptr(resp.Usage.InputTokens),
			CompletionTokens: ptr(resp.Usage.OutputTokens),
			TotalTokens:      ptr(total),
		},
	}, nil
}

func (m *anthropicModel) DoStream(ctx context.Context, opts llmclient.GenerateOptions) (llmclient.TextStream, error) {
	body, err := m.provider.transport.postStream(ctx, "/messages", m.requestBody(opts, true))
	if err != nil {
		return nil, err
	}
	return &anthropicStream{body: body, sse: newSSEReader(body)}, nil
}

type anthropicStream struct {
	body        io.ReadCloser
	sse         *sseReader
	done        bool
	inputTokens int64
}

func (s *anthropicStream) Close() error { return s.body.Close() }

func (s *anthropicStream) Next() (llmclient.StreamChunk, error) {
	if s.done {
		return llmclient.StreamChunk{}, io.EOF
	}
	for {
		event, err := s.sse.Next()
		if err != nil {
			return llmclient.StreamChunk{}, err
		}
		var parsed anthropicStreamEvent
		if err := json.Unmarshal([]byte(event.Data), &parsed); err != nil {
			return llmclient.StreamChunk{}, fmt.Errorf("parsing stream event: %w", err)
		}
		switch parsed.Type {
		case "message_start":
			if parsed.Message != nil {
				s.inputTokens = parsed.Message.Usage.InputTokens
			}
		case "content_block_delta":
			if parsed.Delta != nil && parsed.Delta.Text != "" {
				return llmclient.StreamChunk{Text: parsed.Delta.Text}, nil
			}
		case "message_delta":
			s.done = true
			var outputTokens int64
			if parsed.Usage != nil {
				outputTokens = parsed.Usage.OutputTokens
			}
			total := s.inputTokens + outputTokens
			return llmclient.StreamChunk{Usage: &llmclient.Usage{
				PromptTokens:     ptr(s.inputTokens),
				CompletionTokens: ptr(outputTokens),
				TotalTokens:      ptr(total),
			}}, nil
		case "message_stop":
			s.done = true
			return llmclient.StreamChunk{}, io.EOF
		}
	}
}
