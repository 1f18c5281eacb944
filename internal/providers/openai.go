package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/summarize/internal/llmclient"
)

// wireShape selects which of OpenAI's two request/response shapes a model
// speaks. chatCompletions is the shape every other OpenAI-compatible
// backend (xAI, OpenRouter, Gemini's compatibility endpoint) and
// self-hosted OpenAI-compatible proxies speak; responses is OpenAI's own
// newer default.
type wireShape int

const (
	wireChatCompletions wireShape = iota
	wireResponses
)

const defaultInputTokenBudget = 128_000

// OpenAICompatProvider implements llmclient.Provider against any backend
// that speaks the OpenAI chat-completions (or, for OpenAI itself, the
// responses) wire format: OpenAI, xAI, OpenRouter, and Gemini's
// OpenAI-compatible endpoint all register through this one type under
// their own gateway name and base URL.
type OpenAICompatProvider struct {
	name      string
	apiKey    string
	transport *httpTransport
	shape     wireShape
}

// NewOpenAI builds the provider for OpenAI's own API. useChatCompletions
// forces the older chat-completions shape, which self-hosted or proxy
// "OpenAI-compatible" base URLs generally require instead of the responses
// API.
func NewOpenAI(doer Doer, baseURL, apiKey string, useChatCompletions bool) *OpenAICompatProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	shape := wireResponses
	if useChatCompletions {
		shape = wireChatCompletions
	}
	return &OpenAICompatProvider{
		name:   "openai",
		apiKey: apiKey,
		shape:  shape,
		transport: newHTTPTransport(doer, baseURL, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	}
}

// NewXAI builds the provider for xAI's Grok models, chat-completions shape.
func NewXAI(doer Doer, baseURL, apiKey string) *OpenAICompatProvider {
	if baseURL == "" {
		baseURL = "https://api.x.ai/v1"
	}
	return &OpenAICompatProvider{
		name:   "xai",
		apiKey: apiKey,
		shape:  wireChatCompletions,
		transport: newHTTPTransport(doer, baseURL, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	}
}

// NewOpenRouter builds the provider for OpenRouter's model gateway, used
// for both paid and free-tier (":free" suffixed) model candidates.
func NewOpenRouter(doer Doer, baseURL, apiKey string) *OpenAICompatProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenAICompatProvider{
		name:   "openrouter",
		apiKey: apiKey,
		shape:  wireChatCompletions,
		transport: newHTTPTransport(doer, baseURL, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	}
}

// NewGemini builds the provider for Google's Gemini models via their
// OpenAI-compatible endpoint, rather than the native Gemini wire format.
func NewGemini(doer Doer, baseURL, apiKey string) *OpenAICompatProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	return &OpenAICompatProvider{
		name:   "google",
		apiKey: apiKey,
		shape:  wireChatCompletions,
		transport: newHTTPTransport(doer, baseURL, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	}
}

func (p *OpenAICompatProvider) Name() string          { return p.name }
func (p *OpenAICompatProvider) HasCredentials() bool   { return p.apiKey != "" }

func (p *OpenAICompatProvider) LanguageModel(modelName string) (llmclient.LanguageModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("%s: empty model name", p.name)
	}
	return &openAIModel{provider: p, modelID: modelName}, nil
}

type openAIModel struct {
	provider *OpenAICompatProvider
	modelID  string
}

func (m *openAIModel) Provider() string { return m.provider.name }
func (m *openAIModel) ModelID() string  { return m.modelID }

func (m *openAIModel) InputTokenBudget() int {
	return defaultInputTokenBudget
}

func (m *openAIModel) DoGenerate(ctx context.Context, opts llmclient.GenerateOptions) (*llmclient.GenerateResult, error) {
	if m.provider.shape == wireResponses {
		return m.doGenerateResponses(ctx, opts)
	}
	return m.doGenerateChatCompletions(ctx, opts)
}

func (m *openAIModel) DoStream(ctx context.Context, opts llmclient.GenerateOptions) (llmclient.TextStream, error) {
	if m.provider.shape == wireResponses {
		return m.doStreamResponses(ctx, opts)
	}
	return m.doStreamChatCompletions(ctx, opts)
}

// --- chat-completions wire shape ---

type chatCompletionsRequest struct {
	Model       string                   `json:"model"`
	Messages    []chatCompletionsMessage `json:"messages"`
	MaxTokens   *int                     `json:"max_tokens,omitempty"`
	Temperature *float64                 `json:"temperature,omitempty"`
	Stream      bool                     `json:"stream"`
}

type chatCompletionsMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage chatCompletionsUsage `json:"usage"`
}

type chatCompletionsUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type chatCompletionsChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatCompletionsUsage `json:"usage"`
}

func (m *openAIModel) buildChatMessages(opts llmclient.GenerateOptions) []chatCompletionsMessage {
	var messages []chatCompletionsMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, chatCompletionsMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, chatCompletionsMessage{Role: "user", Content: opts.Prompt})
	return messages
}

func (m *openAIModel) chatRequest(opts llmclient.GenerateOptions, stream bool) chatCompletionsRequest {
	return chatCompletionsRequest{
		Model:       m.modelID,
		Messages:    m.buildChatMessages(opts),
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: opts.Temperature,
		Stream:      stream,
	}
}

func (m *openAIModel) doGenerateChatCompletions(ctx context.Context, opts llmclient.GenerateOptions) (*llmclient.GenerateResult, error) {
	var resp chatCompletionsResponse
	if err := m.provider.transport.postJSON(ctx, "/chat/completions", m.chatRequest(opts, false), &resp); err != nil {
		return nil, err
	}
	result := &llmclient.GenerateResult{
		Usage: llmclient.Usage{
			PromptTokens:     ptr(resp.Usage.PromptTokens),
			CompletionTokens: ptr(resp.Usage.CompletionTokens),
			TotalTokens:      ptr(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) > 0 {
		result.Text = resp.Choices[0].Message.Content
	}
	return result, nil
}

func (m *openAIModel) doStreamChatCompletions(ctx context.Context, opts llmclient.GenerateOptions) (llmclient.TextStream, error) {
	body, err := m.provider.transport.postStream(ctx, "/chat/completions", m.chatRequest(opts, true))
	if err != nil {
		return nil, err
	}
	return &chatCompletionsStream{body: body, sse: newSSEReader(body)}, nil
}

type chatCompletionsStream struct {
	body io.ReadCloser
	sse  *sseReader
	done bool
}

func (s *chatCompletionsStream) Close() error { return s.body.Close() }

func (s *chatCompletionsStream) Next() (llmclient.StreamChunk, error) {
	if s.done {
		return llmclient.StreamChunk{}, io.EOF
	}
	for {
		event, err := s.sse.Next()
		if err != nil {
			return llmclient.StreamChunk{}, err
		}
		if strings.TrimSpace(event.Data) == "[DONE]" {
			s.done = true
			return llmclient.StreamChunk{}, io.EOF
		}
		var chunk chatCompletionsChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			return llmclient.StreamChunk{}, fmt.Errorf("parsing stream chunk: %w", err)
		}
		if chunk.Usage != nil {
			s.done = true
			return llmclient.StreamChunk{Usage: &llmclient.Usage{
				PromptTokens:     ptr(chunk.Usage.PromptTokens),
				CompletionTokens: ptr(chunk.Usage.CompletionTokens),
				TotalTokens:      ptr(chunk.Usage.TotalTokens),
			}}, nil
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			return llmclient.StreamChunk{Text: text}, nil
		}
		if chunk.Choices[0].FinishReason != "" {
			continue
		}
	}
}

// --- responses wire shape (OpenAI default) ---

type responsesRequest struct {
	Model            string   `json:"model"`
	Input            string   `json:"input"`
	Instructions     string   `json:"instructions,omitempty"`
	MaxOutputTokens  *int     `json:"max_output_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	Stream           bool     `json:"stream"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage responsesUsage `json:"usage"`
}

type responsesUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// responsesStreamEvent covers the subset of the responses API's typed SSE
// event union this client consumes: incremental text deltas and the
// terminal completed event carrying final usage.
type responsesStreamEvent struct {
	Type  string         `json:"type"`
	Delta string         `json:"delta"`
	Response *struct {
		Usage responsesUsage `json:"usage"`
	} `json:"response,omitempty"`
}

func (m *openAIModel) responsesRequestBody(opts llmclient.GenerateOptions, stream bool) responsesRequest {
	return responsesRequest{
		Model:           m.modelID,
		Input:           opts.Prompt,
		Instructions:    opts.SystemPrompt,
		MaxOutputTokens: opts.MaxOutputTokens,
		Temperature:     opts.Temperature,
		Stream:          stream,
	}
}

func (m *openAIModel) doGenerateResponses(ctx context.Context, opts llmclient.GenerateOptions) (*llmclient.GenerateResult, error) {
	var resp responsesResponse
	if err := m.provider.transport.postJSON(ctx, "/responses", m.responsesRequestBody(opts, false), &resp); err != nil {
		return nil, err
	}
	result := &llmclient.GenerateResult{
		Usage: llmclient.Usage{
			PromptTokens:     ptr(resp.Usage.InputTokens),
			CompletionTokens: ptr(resp.Usage.OutputTokens),
			TotalTokens:      ptr(resp.Usage.TotalTokens),
		},
	}
	var sb strings.Builder
	for _, out := range resp.Output {
		for _, content := range out.Content {
			sb.WriteString(content.Text)
		}
	}
	result.Text = sb.String()
	return result, nil
}

func (m *openAIModel) doStreamResponses(ctx context.Context, opts llmclient.GenerateOptions) (llmclient.TextStream, error) {
	body, err := m.provider.transport.postStream(ctx, "/responses", m.responsesRequestBody(opts, true))
	if err != nil {
		return nil, err
	}
	return &responsesStream{body: body, sse: newSSEReader(body)}, nil
}

type responsesStream struct {
	body io.ReadCloser
	sse  *sseReader
	done bool
}

func (s *responsesStream) Close() error { return s.body.Close() }

func (s *responsesStream) Next() (llmclient.StreamChunk, error) {
	if s.done {
		return llmclient.StreamChunk{}, io.EOF
	}
	for {
		event, err := s.sse.Next()
		if err != nil {
			return llmclient.StreamChunk{}, err
		}
		var parsed responsesStreamEvent
		if err := json.Unmarshal([]byte(event.Data), &parsed); err != nil {
			return llmclient.StreamChunk{}, fmt.Errorf("parsing stream event: %w", err)
		}
		switch parsed.Type {
		case "response.output_text.delta":
			if parsed.Delta != "" {
				return llmclient.StreamChunk{Text: parsed.Delta}, nil
			}
		case "response.completed":
			s.done = true
			usage := llmclient.Usage{}
			if parsed.Response != nil {
				usage = llmclient.Usage{
					PromptTokens:     ptr(parsed.Response.Usage.InputTokens),
					CompletionTokens: ptr(parsed.Response.Usage.OutputTokens),
					TotalTokens:      ptr(parsed.Response.Usage.TotalTokens),
				}
			}
			return llmclient.StreamChunk{Usage: &usage}, nil
		}
	}
}
