package modelid

import (
	"context"
	"fmt"
	"sync"
)

// CredentialChecker reports whether credentials are configured for a
// provider, without making a network call.
type CredentialChecker func(provider string) bool

// Registry resolves model aliases and candidate fallback chains. It holds
// no provider clients itself (that's internal/llmclient's job) — only the
// alias table and the credential-presence check used to pick a candidate.
type Registry struct {
	mu       sync.RWMutex
	presets  map[string]Preset
	hasCreds CredentialChecker
}

// NewRegistry creates a Registry. hasCreds may be nil, in which case every
// provider is treated as having credentials (resolution then depends solely
// on whether a candidate actually produces output).
func NewRegistry(hasCreds CredentialChecker) *Registry {
	if hasCreds == nil {
		hasCreds = func(string) bool { return true }
	}
	return &Registry{presets: make(map[string]Preset), hasCreds: hasCreds}
}

// RegisterPreset registers or replaces a named alias preset ("free", "auto",
// or a user-defined name from models.<name> config).
func (r *Registry) RegisterPreset(p Preset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[p.Name] = p
}

// Preset returns a registered preset by name.
func (r *Registry) Preset(name string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[name]
	return p, ok
}

// Attempt is one candidate tried during resolution, along with the error it
// produced (nil on success).
type Attempt struct {
	Candidate string
	Err       error
}

// TryFunc invokes a resolved candidate model and reports whether it
// produced usable (non-empty) output.
type TryFunc func(ctx context.Context, id ID) error

// ResolutionError is returned when every candidate in a preset's rule set
// failed; it carries the most informative (last) underlying error plus a
// hint for the built-in "free" preset.
type ResolutionError struct {
	Preset   string
	Attempts []Attempt
	Hint     string
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("no candidate in preset %q succeeded", e.Preset)
	if len(e.Attempts) > 0 {
		last := e.Attempts[len(e.Attempts)-1]
		msg = fmt.Sprintf("%s: %s", msg, last.Err)
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Resolve picks the first rule in preset matching kind, then iterates its
// candidates in order until try succeeds (credentials present AND try
// returns nil). If every candidate fails, it returns the last real error,
// appending a "run refresh-free" hint for the built-in "free" preset.
func (r *Registry) Resolve(ctx context.Context, presetName string, kind InputKind, try TryFunc) (ID, error) {
	preset, ok := r.Preset(presetName)
	if !ok {
		// Not an alias at all: treat presetName as a literal "provider/name" ID.
		id, err := Parse(presetName)
		if err != nil {
			return ID{}, err
		}
		return id, try(ctx, id)
	}

	candidates := preset.CandidatesFor(kind)
	var attempts []Attempt

	for _, candidate := range candidates {
		id, err := Parse(candidate)
		if err != nil {
			attempts = append(attempts, Attempt{Candidate: candidate, Err: err})
			continue
		}
		if !r.hasCreds(id.Provider) {
			attempts = append(attempts, Attempt{Candidate: candidate, Err: fmt.Errorf("no credentials for provider %q", id.Provider)})
			continue
		}
		if err := try(ctx, id); err != nil {
			attempts = append(attempts, Attempt{Candidate: candidate, Err: err})
			continue
		}
		return id, nil
	}

	resErr := &ResolutionError{Preset: presetName, Attempts: attempts}
	if presetName == "free" {
		resErr.Hint = "run `refresh-free` to refresh the free-model candidate list"
	}
	return ID{}, resErr
}
