package costbook

// PricingEntry holds per-million-token USD rates for one model, plus any
// flat per-request rate for auxiliary services priced outside the
// token-based scheme.
type PricingEntry struct {
	InputUSDPer1M  float64
	OutputUSDPer1M float64
}

// Cost computes prompt/1e6*inputPrice + completion/1e6*outputPrice,
// preserving CostBook's null rule: nil iff both prompt and completion are
// nil (no usage data contributed to this row at all).
func (e PricingEntry) Cost(prompt, completion *int64) *float64 {
	if prompt == nil && completion == nil {
		return nil
	}
	var cost float64
	if prompt != nil {
		cost += float64(*prompt) / 1e6 * e.InputUSDPer1M
	}
	if completion != nil {
		cost += float64(*completion) / 1e6 * e.OutputUSDPer1M
	}
	return &cost
}

// PricingTable maps a canonical "provider/model" ID to its pricing entry.
type PricingTable struct {
	entries map[string]PricingEntry
}

// NewPricingTable creates a pricing table from a provider/model -> entry map.
func NewPricingTable(entries map[string]PricingEntry) *PricingTable {
	if entries == nil {
		entries = make(map[string]PricingEntry)
	}
	return &PricingTable{entries: entries}
}

// Lookup returns the pricing entry for model, if known.
func (t *PricingTable) Lookup(model string) (PricingEntry, bool) {
	if t == nil {
		return PricingEntry{}, false
	}
	e, ok := t.entries[model]
	return e, ok
}
