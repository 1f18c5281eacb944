// Package modelid parses gateway-style model identifiers ("provider/name")
// and resolves alias presets ("free", "auto", user-defined) to a concrete
// candidate list, generalizing the "provider:model" registry idiom to the
// slash-separated gateway syntax.
package modelid

import (
	"fmt"
	"strings"
)

// ID is a parsed "provider/name" model identifier.
type ID struct {
	Provider string
	Name     string
}

// String renders the canonical "provider/name" form.
func (id ID) String() string {
	return id.Provider + "/" + id.Name
}

// Parse splits a gateway-style model string on the first "/". Parsing is
// purely lexical: everything before the first slash is the provider,
// everything after is the provider-native model name, which may itself
// contain slashes (e.g. OpenRouter's "meta-llama/llama-3.1-70b").
func Parse(raw string) (ID, error) {
	idx := strings.Index(raw, "/")
	if idx <= 0 || idx == len(raw)-1 {
		return ID{}, fmt.Errorf("invalid model id (expected provider/name): %q", raw)
	}
	return ID{Provider: raw[:idx], Name: raw[idx+1:]}, nil
}

// InputKind is the classification of the content a rule applies to, per the
// extractor's website|asset|youtube classification.
type InputKind string

const (
	KindWebsite InputKind = "website"
	KindAsset   InputKind = "asset"
	KindYouTube InputKind = "youtube"
)

// Rule is one entry in an alias preset's rule set: an optional list of input
// kinds it applies to, and an ordered candidate list to try.
type Rule struct {
	When       []InputKind
	Candidates []string
}

// Preset is a named rule set resolved by an alias like "free" or "auto".
type Preset struct {
	Name  string
	Mode  string // "auto" is the only mode currently defined
	Rules []Rule
}

// matches reports whether the rule applies to kind. An empty When list
// applies unconditionally.
func (r Rule) matches(kind InputKind) bool {
	if len(r.When) == 0 {
		return true
	}
	for _, k := range r.When {
		if k == kind {
			return true
		}
	}
	return false
}

// CandidatesFor picks the first matching rule for kind and returns its
// ordered candidate list. Returns nil if no rule matches.
func (p Preset) CandidatesFor(kind InputKind) []string {
	for _, rule := range p.Rules {
		if rule.matches(kind) {
			return rule.Candidates
		}
	}
	return nil
}
