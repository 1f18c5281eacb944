package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/internal/llmclient"
)

func decodeJSONBody(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func TestOpenAICompatProvider_ChatCompletions_DoGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"finish_reason": "stop", "message": {"content": "a concise summary"}}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
		}`))
	}))
	defer server.Close()

	provider := NewXAI(http.DefaultClient, server.URL, "sk-test")
	assert.Equal(t, "xai", provider.Name())
	assert.True(t, provider.HasCredentials())

	model, err := provider.LanguageModel("grok-4")
	require.NoError(t, err)
	assert.Equal(t, "xai", model.Provider())
	assert.Equal(t, "grok-4", model.ModelID())

	result, err := model.DoGenerate(context.Background(), llmclient.GenerateOptions{
		SystemPrompt: "You summarize content.",
		Prompt:       "Summarize this transcript.",
	})
	require.NoError(t, err)
	assert.Equal(t, "a concise summary", result.Text)
	require.NotNil(t, result.Usage.PromptTokens)
	assert.EqualValues(t, 100, *result.Usage.PromptTokens)
	assert.EqualValues(t, 20, *result.Usage.CompletionTokens)
	assert.EqualValues(t, 120, *result.Usage.TotalTokens)
}

func TestOpenAICompatProvider_ChatCompletions_DoStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		frames := []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"delta":{"content":"lo"}}]}`,
			`data: {"choices":[{"delta":{}}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
			`data: [DONE]`,
		}
		for _, frame := range frames {
			_, _ = w.Write([]byte(frame + "\n\n"))
			flusher.Flush()
		}
	}))
	defer server.Close()

	provider := NewOpenRouter(http.DefaultClient, server.URL, "sk-or-test")
	model, err := provider.LanguageModel("meta-llama/llama-3.1-70b:free")
	require.NoError(t, err)

	stream, err := model.DoStream(context.Background(), llmclient.GenerateOptions{Prompt: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	var text string
	var sawUsage bool
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		text += chunk.Text
		if chunk.Usage != nil {
			sawUsage = true
			assert.EqualValues(t, 7, *chunk.Usage.TotalTokens)
		}
	}
	assert.Equal(t, "Hello", text)
	assert.True(t, sawUsage)
}

func TestOpenAICompatProvider_Responses_DoGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"output": [{"type": "message", "content": [{"type": "output_text", "text": "summary text"}]}],
			"usage": {"input_tokens": 50, "output_tokens": 10, "total_tokens": 60}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAI(http.DefaultClient, server.URL, "sk-test", false)
	model, err := provider.LanguageModel("gpt-5")
	require.NoError(t, err)

	result, err := model.DoGenerate(context.Background(), llmclient.GenerateOptions{Prompt: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "summary text", result.Text)
	assert.EqualValues(t, 60, *result.Usage.TotalTokens)
}

func TestOpenAICompatProvider_UnauthorizedMapsToModelAccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer server.Close()

	provider := NewXAI(http.DefaultClient, server.URL, "bad-key")
	model, err := provider.LanguageModel("grok-4")
	require.NoError(t, err)

	_, err = model.DoGenerate(context.Background(), llmclient.GenerateOptions{Prompt: "hi"})
	require.Error(t, err)
	kind, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.ModelAccess, kind)
}

func TestOpenAICompatProvider_RateLimitMapsToRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewOpenRouter(http.DefaultClient, server.URL, "sk-or-test")
	model, err := provider.LanguageModel("some/model:free")
	require.NoError(t, err)

	_, err = model.DoGenerate(context.Background(), llmclient.GenerateOptions{Prompt: "hi"})
	require.Error(t, err)
	kind, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.RateLimit, kind)
}

func TestOpenAICompatProvider_HasCredentials(t *testing.T) {
	assert.False(t, NewXAI(http.DefaultClient, "", "").HasCredentials())
	assert.True(t, NewXAI(http.DefaultClient, "", "sk-present").HasCredentials())
}

func TestOpenAICompatProvider_LanguageModel_RejectsEmptyName(t *testing.T) {
	provider := NewXAI(http.DefaultClient, "", "sk-test")
	_, err := provider.LanguageModel("")
	assert.Error(t, err)
}

func TestAnthropicProvider_DoGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [{"type": "text", "text": "anthropic summary"}],
			"usage": {"input_tokens": 200, "output_tokens": 40}
		}`))
	}))
	defer server.Close()

	provider := NewAnthropic(http.DefaultClient, server.URL, "sk-ant-test")
	assert.Equal(t, "anthropic", provider.Name())

	model, err := provider.LanguageModel("claude-3-5-sonnet-latest")
	require.NoError(t, err)

	result, err := model.DoGenerate(context.Background(), llmclient.GenerateOptions{
		SystemPrompt: "Summarize concisely.",
		Prompt:       "transcript text",
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic summary", result.Text)
	assert.EqualValues(t, 200, *result.Usage.PromptTokens)
	assert.EqualValues(t, 40, *result.Usage.CompletionTokens)
	assert.EqualValues(t, 240, *result.Usage.TotalTokens)
}

func TestAnthropicProvider_DoStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		frames := []string{
			`data: {"type":"message_start","message":{"usage":{"input_tokens":30,"output_tokens":0}}}`,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Sum"}}`,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"mary"}}`,
			`data: {"type":"message_delta","usage":{"input_tokens":30,"output_tokens":5}}`,
			`data: {"type":"message_stop"}`,
		}
		for _, frame := range frames {
			_, _ = w.Write([]byte(frame + "\n\n"))
			flusher.Flush()
		}
	}))
	defer server.Close()

	provider := NewAnthropic(http.DefaultClient, server.URL, "sk-ant-test")
	model, err := provider.LanguageModel("claude-3-5-sonnet-latest")
	require.NoError(t, err)

	stream, err := model.DoStream(context.Background(), llmclient.GenerateOptions{Prompt: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	var text string
	var finalUsage *llmclient.Usage
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		text += chunk.Text
		if chunk.Usage != nil {
			finalUsage = chunk.Usage
		}
	}
	assert.Equal(t, "Summary", text)
	require.NotNil(t, finalUsage)
	assert.EqualValues(t, 30, *finalUsage.PromptTokens)
	assert.EqualValues(t, 5, *finalUsage.CompletionTokens)
	assert.EqualValues(t, 35, *finalUsage.TotalTokens)
}

func TestAnthropicProvider_DefaultMaxTokensWhenUnset(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, decodeJSONBody(r, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content": [], "usage": {"input_tokens": 1, "output_tokens": 1}}`))
	}))
	defer server.Close()

	provider := NewAnthropic(http.DefaultClient, server.URL, "sk-ant-test")
	model, err := provider.LanguageModel("claude-3-5-haiku-latest")
	require.NoError(t, err)

	_, err = model.DoGenerate(context.Background(), llmclient.GenerateOptions{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicMaxTokens, captured.MaxTokens)
}
