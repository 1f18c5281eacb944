package costbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(n int64) *int64 { return &n }

func TestBook_TotalsWithPricing_GroupsByProviderModel(t *testing.T) {
	b := New()
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-5", Usage: Usage{Prompt: ptr(100), Completion: ptr(50)}, Purpose: PurposeSummary})
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-5", Usage: Usage{Prompt: ptr(200), Completion: ptr(20)}, Purpose: PurposeChunkNotes})
	b.RecordCall(LlmCall{Provider: "anthropic", Model: "claude", Usage: Usage{Prompt: ptr(10), Completion: ptr(5)}, Purpose: PurposeSummary})

	totals := b.Totals()
	require.Len(t, totals.Groups, 2)

	var gptGroup GroupTotal
	for _, g := range totals.Groups {
		if g.Key.Model == "gpt-5" {
			gptGroup = g
		}
	}
	require.Equal(t, int64(300), *gptGroup.Prompt)
	require.Equal(t, int64(70), *gptGroup.Completion)
	assert.Equal(t, 2, gptGroup.CallCount)
}

func TestBook_Totals_NullPreservation(t *testing.T) {
	b := New()
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-5", Usage: Usage{Prompt: nil, Completion: nil}})

	totals := b.Totals()
	require.Len(t, totals.Groups, 1)
	assert.Nil(t, totals.Groups[0].Prompt)
	assert.Nil(t, totals.Groups[0].Completion)
}

func TestBook_Totals_PartialUsageSumsWhatExists(t *testing.T) {
	b := New()
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-5", Usage: Usage{Prompt: ptr(100)}})
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-5", Usage: Usage{Prompt: nil, Completion: ptr(10)}})

	totals := b.Totals()
	require.Len(t, totals.Groups, 1)
	assert.Equal(t, int64(100), *totals.Groups[0].Prompt)
	assert.Equal(t, int64(10), *totals.Groups[0].Completion)
}

func TestPricingEntry_Cost(t *testing.T) {
	entry := PricingEntry{InputUSDPer1M: 2.0, OutputUSDPer1M: 8.0}
	cost := entry.Cost(ptr(1_000_000), ptr(500_000))
	require.NotNil(t, cost)
	assert.InDelta(t, 2.0+4.0, *cost, 1e-9)
}

func TestPricingEntry_Cost_NilWhenNoUsage(t *testing.T) {
	entry := PricingEntry{InputUSDPer1M: 2.0, OutputUSDPer1M: 8.0}
	assert.Nil(t, entry.Cost(nil, nil))
}

func TestBook_TotalsWithPricing_TotalCostNullUnlessContribution(t *testing.T) {
	b := New()
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-5", Usage: Usage{}})

	totals := b.TotalsWithPricing(NewPricingTable(map[string]PricingEntry{
		"gpt-5": {InputUSDPer1M: 2.0, OutputUSDPer1M: 8.0},
	}))
	assert.Nil(t, totals.TotalCostUSD)
}

func TestBook_RecordServiceHit(t *testing.T) {
	b := New()
	b.RecordServiceHit("firecrawl")
	b.RecordServiceHit("firecrawl")
	b.RecordServiceHit("apify")

	totals := b.Totals()
	assert.Equal(t, int64(2), totals.Services["firecrawl"])
	assert.Equal(t, int64(1), totals.Services["apify"])
}
