// Package providers implements llmclient.Provider against real model
// backends over plain HTTP, grounded directly on the wire shapes those
// backends publish rather than on any vendor SDK: an OpenAI-compatible
// chat-completions provider (covers OpenAI, xAI, OpenRouter, and Gemini's
// OpenAI-compatible endpoint) and an Anthropic Messages API provider.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/pkg/httpclient"
)

// Doer is the subset of *httpclient.Client a provider needs; satisfied
// directly by *httpclient.Client so every provider rides its circuit
// breaker, retry, and decompression behavior.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// httpTransport wraps a Doer with the bearer/header plumbing every wire
// protocol here needs, so each provider's language model only builds and
// parses JSON bodies.
type httpTransport struct {
	doer    Doer
	baseURL string
	headers map[string]string
}

func newHTTPTransport(doer Doer, baseURL string, headers map[string]string) *httpTransport {
	if doer == nil {
		doer = httpclient.NewWithDefaults()
	}
	return &httpTransport{doer: doer, baseURL: baseURL, headers: headers}
}

func (t *httpTransport) postJSON(ctx context.Context, path string, body any, out any) error {
	resp, err := t.post(ctx, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (t *httpTransport) postStream(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	resp, err := t.post(ctx, path, body, map[string]string{"Accept": "text/event-stream"})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (t *httpTransport) post(ctx context.Context, path string, body any, extraHeaders map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := t.doer.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.ModelAccess, fmt.Errorf("calling model backend: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, apperror.Wrap(apperror.RateLimit, fmt.Errorf("model backend rate limited (status %d)", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, apperror.Wrap(apperror.ModelAccess, fmt.Errorf("model backend rejected credentials (status %d): %s", resp.StatusCode, string(errBody)))
	}
	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, apperror.Wrap(apperror.ModelAccess, fmt.Errorf("model backend returned status %d: %s", resp.StatusCode, string(errBody)))
	}

	return resp, nil
}

// ptr is a small generic helper for constructing the *int64/*float64 fields
// llmclient.Usage and GenerateOptions carry.
func ptr[T any](v T) *T { return &v }
