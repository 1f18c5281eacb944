package llmclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmylchreest/summarize/internal/apperror"
)

// Client dispatches generate/stream calls to a registered Provider by name,
// the run orchestrator's single entry point into the model layer.
type Client struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewClient returns an empty client; providers are added with Register.
func NewClient() *Client {
	return &Client{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider under its own Name().
func (c *Client) Register(p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[p.Name()] = p
}

// HasCredentials reports whether providerName is registered and configured,
// used by modelid.Registry.Resolve's candidate filter.
func (c *Client) HasCredentials(providerName string) bool {
	c.mu.RLock()
	p, ok := c.providers[providerName]
	c.mu.RUnlock()
	return ok && p.HasCredentials()
}

func (c *Client) model(providerName, modelName string) (LanguageModel, error) {
	c.mu.RLock()
	p, ok := c.providers[providerName]
	c.mu.RUnlock()
	if !ok {
		return nil, apperror.Wrap(apperror.ModelAccess, fmt.Errorf("no provider registered for %q", providerName))
	}
	m, err := p.LanguageModel(modelName)
	if err != nil {
		return nil, apperror.Wrap(apperror.ModelAccess, fmt.Errorf("resolve model %s/%s: %w", providerName, modelName, err))
	}
	return m, nil
}

// Generate performs a single non-streaming completion against
// providerName/modelName.
func (c *Client) Generate(ctx context.Context, providerName, modelName string, opts GenerateOptions) (*GenerateResult, error) {
	m, err := c.model(providerName, modelName)
	if err != nil {
		return nil, err
	}
	res, err := m.DoGenerate(ctx, opts)
	if err != nil {
		return nil, apperror.Wrap(apperror.ModelAccess, err)
	}
	return res, nil
}

// Stream starts a streaming completion against providerName/modelName.
func (c *Client) Stream(ctx context.Context, providerName, modelName string, opts GenerateOptions) (TextStream, error) {
	m, err := c.model(providerName, modelName)
	if err != nil {
		return nil, err
	}
	s, err := m.DoStream(ctx, opts)
	if err != nil {
		return nil, apperror.Wrap(apperror.ModelAccess, err)
	}
	return s, nil
}

// InputTokenBudget returns the configured model's input token budget, or 0
// if the provider/model cannot be resolved (the caller treats 0 as "no
// budget known", never as a hard pre-flight failure on its own).
func (c *Client) InputTokenBudget(providerName, modelName string) int {
	m, err := c.model(providerName, modelName)
	if err != nil {
		return 0
	}
	return m.InputTokenBudget()
}
