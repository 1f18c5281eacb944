// Package freerank discovers and ranks OpenRouter's ":free" model catalog
// for the "free" alias preset, the same one-shot discover/filter/probe
// shape as the teacher's scheduler.Executor driving a job handler to
// completion, simplified to a direct synchronous call since a catalog
// refresh is a single CLI invocation, not a recurring cron job.
package freerank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

const catalogURL = "https://openrouter.ai/api/v1/models"

// CatalogModel is one entry from OpenRouter's public model listing, trimmed
// to the fields the ranker's filters need.
type CatalogModel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created int64  `json:"created"`
}

type catalogResponse struct {
	Data []CatalogModel `json:"data"`
}

// CatalogFetcher retrieves the current OpenRouter model listing.
type CatalogFetcher interface {
	Fetch(ctx context.Context) ([]CatalogModel, error)
}

// HTTPCatalogFetcher fetches the catalog over HTTP using an injected
// doer (normally an *httpclient.Client), so the ranker never depends on a
// concrete HTTP stack.
type HTTPCatalogFetcher struct {
	Doer interface {
		Get(ctx context.Context, url string) (*http.Response, error)
	}
}

// Fetch implements CatalogFetcher.
func (f *HTTPCatalogFetcher) Fetch(ctx context.Context) ([]CatalogModel, error) {
	resp, err := f.Doer.Get(ctx, catalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetching openrouter catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openrouter catalog returned %d: %s", resp.StatusCode, body)
	}

	var parsed catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding openrouter catalog: %w", err)
	}
	return parsed.Data, nil
}

// paramCountPattern pulls a parameter-count token like "70b" or "8.3b" out
// of a model id or display name (OpenRouter encodes it in both).
var paramCountPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*[bB](?:illion)?\b`)

// parameterCountBillions heuristically extracts the model's parameter count
// in billions from its id/name, returning 0 if no such token is found. This
// is the same "~27B heuristic from model name" the ranker filters against,
// since OpenRouter's catalog does not report parameter count as a field.
func parameterCountBillions(m CatalogModel) float64 {
	for _, s := range []string{m.ID, m.Name} {
		if match := paramCountPattern.FindStringSubmatch(s); match != nil {
			if v, err := strconv.ParseFloat(match[1], 64); err == nil {
				return v
			}
		}
	}
	return 0
}

// isFreeVariant reports whether id carries OpenRouter's ":free" suffix.
func isFreeVariant(id string) bool {
	return strings.HasSuffix(id, ":free")
}
