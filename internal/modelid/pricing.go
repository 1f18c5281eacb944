package modelid

// PricingLookup resolves the pricing key to use for a given model ID,
// two-tier: an exact "provider/model" match, falling back to the bare model
// name with no provider prefix. Missing entries are the caller's concern
// (costbook.PricingTable.Lookup already returns "not found" rather than a
// zero-valued entry, preserving the "null, not zero" rule).
func PricingLookup(id ID) []string {
	return []string{id.String(), id.Name}
}
