package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmylchreest/summarize/internal/modelid"
)

// Save writes cfg to path as indented JSON, creating the parent directory
// if needed. Used by the refresh-free command to persist the ranker's
// selection.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// SetFreeCandidates overwrites the built-in "free" preset's first rule
// candidate list, the persistence point named by the refresh-free ranker's
// contract (models.free.rules[0].candidates).
func (c *Config) SetFreeCandidates(candidates []string) {
	if c.Models == nil {
		c.Models = make(map[string]modelid.Preset)
	}
	preset, ok := c.Models["free"]
	if !ok {
		preset = modelid.Preset{Name: "free", Mode: "auto"}
	}
	if len(preset.Rules) == 0 {
		preset.Rules = []modelid.Rule{{}}
	}
	preset.Rules[0].Candidates = candidates
	c.Models["free"] = preset
}
