// Package langresolve normalizes free-form language tags or names (e.g.
// "en", "English", "pt-BR") to a {tag, label} pair consumable by the prompt
// builder, falling back to a sanitized label when nothing matches.
package langresolve

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Resolved is the outcome of resolving a free-form language input.
type Resolved struct {
	// Tag is the canonical BCT-47 tag (e.g. "en", "pt-BR"), empty if
	// unrecognized.
	Tag string
	// Label is the human-readable display name shown to the model and the
	// user; always non-empty for a non-empty input.
	Label string
	// Recognized is false when the input didn't match any known tag or
	// name and Label is the sanitized raw input instead.
	Recognized bool
}

// names maps common free-form language names (lowercased) to a tag, beyond
// what golang.org/x/text/language.Parse already accepts (it parses BCP-47
// tags and some names, but not every label users type, e.g. "mandarin").
var names = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"mandarin":   "zh",
	"arabic":     "ar",
	"hindi":      "hi",
	"polish":     "pl",
	"swedish":    "sv",
	"turkish":    "tr",
	"vietnamese": "vi",
	"thai":       "th",
}

// Resolve normalizes a free-form language string. An empty input resolves
// to an empty, unrecognized Resolved (the orchestrator treats this as "use
// the source language").
func Resolve(input string) Resolved {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Resolved{}
	}

	if tag, ok := names[strings.ToLower(trimmed)]; ok {
		return Resolved{Tag: tag, Label: displayName(tag), Recognized: true}
	}

	if tag, err := language.Parse(trimmed); err == nil && tag != language.Und {
		canonical := tag.String()
		return Resolved{Tag: canonical, Label: displayName(canonical), Recognized: true}
	}

	return Resolved{Label: sanitize(trimmed), Recognized: false}
}

// displayName renders a BCP-47 tag's English display name, falling back to
// the tag itself if the display namer doesn't recognize it.
func displayName(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	name := displayBaseName(parsed)
	if name == "" {
		return tag
	}
	return name
}

// displayBaseName looks up the English name for a tag using the base language
// (region/script variants fall back to their base language's name).
func displayBaseName(tag language.Tag) string {
	base, _ := tag.Base()
	return display.English.Languages().Name(base)
}

// sanitize strips characters that would be unsafe to splice directly into a
// prompt or a log line as a "language" value: control characters and
// surrounding whitespace.
func sanitize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
