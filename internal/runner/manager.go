package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/summarize/internal/daemon"
	"github.com/jmylchreest/summarize/internal/models"
	"github.com/jmylchreest/summarize/internal/slides"
)

// Manager adapts a Runner to daemon.RunManager: it accepts a job, runs it on
// a detached background context so the submitting HTTP request can return
// immediately, and tracks the one piece of state the daemon needs to query
// back later — the slide manifest a run produced, since slides finish on
// their own timeline via runSlidesAsync.
type Manager struct {
	runner    *Runner
	slidesDir string
	logger    *slog.Logger

	mu        sync.Mutex
	manifests map[string]*slides.Manifest
}

// NewManager returns a Manager that roots every run's slide output under
// slidesDir/<runID>.
func NewManager(r *Runner, slidesDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		runner:    r,
		slidesDir: slidesDir,
		logger:    logger,
		manifests: make(map[string]*slides.Manifest),
	}
}

// Submit starts req in the background and returns its run ID immediately;
// progress is reported over the run's SSE bus, not this call's return value.
func (m *Manager) Submit(ctx context.Context, req daemon.SubmitJobRequest) (daemon.SubmitJobResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = "url"
	}
	runID := models.NewULID()

	var maxCharacters int
	if req.MaxCharacters != nil {
		maxCharacters = *req.MaxCharacters
	}
	var maxOutputTokens int
	if req.MaxOutputTokens != nil {
		maxOutputTokens = *req.MaxOutputTokens
	}

	runnerReq := Request{
		RunID:           runID,
		URL:             req.URL,
		Mode:            mode,
		Title:           req.Title,
		Text:            req.Text,
		ModelPreset:     req.Model,
		Length:          req.Length,
		Language:        req.Language,
		SystemPrompt:    req.Prompt,
		MaxCharacters:   maxCharacters,
		MaxOutputTokens: maxOutputTokens,
		ExtractOnly:     req.ExtractOnly,
		WithSlides:    true,
		SlidesDir:     filepath.Join(m.slidesDir, runID.String()),
		OnSlidesManifest: func(manifest *slides.Manifest) {
			m.mu.Lock()
			m.manifests[runID.String()] = manifest
			m.mu.Unlock()
		},
	}

	go func() {
		bgCtx := context.Background()
		if _, err := m.runner.Run(bgCtx, runnerReq); err != nil {
			m.logger.ErrorContext(bgCtx, "run failed",
				slog.String("run_id", runID.String()), slog.String("error", err.Error()))
		}
	}()

	return daemon.SubmitJobResult{OK: true, ID: runID.String()}, nil
}

// SlidesManifest returns the slide manifest for runID once runSlidesAsync has
// finished, satisfying GET /v1/slides/{runId}/snapshot.
func (m *Manager) SlidesManifest(runID string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	manifest, ok := m.manifests[runID]
	return manifest, ok
}

// SlideImagePath resolves a slide index within a run's manifest to its PNG
// path on disk, satisfying GET /v1/slides/{sourceId}/{index}.
func (m *Manager) SlideImagePath(sourceID string, index int) (string, error) {
	m.mu.Lock()
	manifest, ok := m.manifests[sourceID]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no slide manifest for run %s", sourceID)
	}
	if index < 0 || index >= len(manifest.Slides) {
		return "", fmt.Errorf("slide index %d out of range for run %s", index, sourceID)
	}
	return manifest.Slides[index].Path, nil
}
