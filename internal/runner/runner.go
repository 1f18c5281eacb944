// Package runner drives a single summarization job end to end: resolve the
// language, classify and extract the input (recursing once into an embedded
// video when a page turns out to have no article text), optionally fan out
// slide extraction in parallel, build and issue the summary prompt (chunked
// map-reduce when the content outgrows the model's input budget), then
// persist the result and report cost. It is the sequential counterpart to
// the teacher's multi-stage proxy-build Orchestrator: one run, one ordered
// list of steps, no pluggable stage registry, because a run has a fixed
// shape the way a proxy rebuild's stage list does not.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/internal/costbook"
	"github.com/jmylchreest/summarize/internal/extractor"
	"github.com/jmylchreest/summarize/internal/langresolve"
	"github.com/jmylchreest/summarize/internal/llmclient"
	"github.com/jmylchreest/summarize/internal/mediacache"
	"github.com/jmylchreest/summarize/internal/metacache"
	"github.com/jmylchreest/summarize/internal/modelid"
	"github.com/jmylchreest/summarize/internal/models"
	"github.com/jmylchreest/summarize/internal/slides"
	"github.com/jmylchreest/summarize/internal/streammerge"
	"github.com/jmylchreest/summarize/internal/urlutil"
)

// defaultInputTokenBudget is used when a model reports no configured budget
// (InputTokenBudget() == 0), so chunk planning always has something to
// divide by.
const defaultInputTokenBudget = 100_000

// Dependencies bundles everything a Runner needs. Assembled once by the CLI
// or daemon at startup and shared across runs, the way the teacher's
// pipeline.Dependencies bundles repos/sandbox/logger for its Factory.
type Dependencies struct {
	Extractor   *extractor.Extractor
	Slides      *slides.Pipeline
	LLM         *llmclient.Client
	Models      *modelid.Registry
	Runs        *metacache.RunRepository
	Transcripts *metacache.TranscriptCache
	Contents    *metacache.ContentCache
	Summaries   *metacache.SummaryCache
	Media       *mediacache.Cache
	Buses       *streammerge.Registry
	Logger      *slog.Logger
}

// Request is one job submission, matching the daemon's POST /v1/summarize
// body and the CLI's equivalent flag set.
type Request struct {
	RunID         models.ULID
	URL           string
	Mode          string // "url" | "page"
	Title         string
	Text          string
	ModelPreset   string
	Length        string
	Language      string
	SystemPrompt  string
	MaxCharacters int
	// MaxOutputTokens caps generated length at the provider level; zero means
	// the model's own default applies.
	MaxOutputTokens int
	ExtractOnly   bool
	WithSlides    bool
	SlidesDir     string
	SlidesOptions slides.Options
	NoCache       bool
	NoMediaCache  bool
	// OnSlidesManifest, if set, receives the finished slide manifest once
	// runSlidesAsync completes. Used by Manager to answer the daemon's
	// slide-serving routes without the Runner itself tracking state across
	// calls.
	OnSlidesManifest func(*slides.Manifest)
}

// Result is what a completed (or extract-only) run produced.
type Result struct {
	RunID         models.ULID
	ExtractedText string
	Title         string
	SummaryText   string
	Usage         costbook.Totals
}

// Runner executes Requests against a fixed Dependencies set.
type Runner struct {
	deps Dependencies
}

// New returns a Runner bound to deps.
func New(deps Dependencies) *Runner {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Runner{deps: deps}
}

// Run executes req's job end to end, recording an SSE event log under
// req.RunID and persisting the outcome through r.deps.Runs.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	bus := r.deps.Buses.Create(req.RunID.String())
	book := costbook.New()

	run := &models.Run{
		SourceURL: req.URL,
		ModelID:   req.ModelPreset,
		Length:    req.Length,
		Language:  req.Language,
		Status:    models.RunStatusPending,
	}
	run.ID = req.RunID
	if err := r.deps.Runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	result, err := r.execute(ctx, req, bus, book)
	if err != nil {
		bus.AppendError(err.Error())
		kind, ok := apperror.As(err)
		if !ok {
			kind = apperror.Extraction
		}
		if uerr := r.deps.Runs.UpdateStatus(ctx, req.RunID, models.RunStatusFailed, string(kind), err.Error()); uerr != nil {
			r.deps.Logger.ErrorContext(ctx, "recording failed run status", slog.String("error", uerr.Error()))
		}
		return nil, err
	}

	bus.Done()
	return result, nil
}

func (r *Runner) execute(ctx context.Context, req Request, bus *streammerge.Bus, book *costbook.Book) (*Result, error) {
	lang := langresolve.Resolve(req.Language)

	if err := r.deps.Runs.UpdateStatus(ctx, req.RunID, models.RunStatusExtracting, "", ""); err != nil {
		return nil, fmt.Errorf("updating run status: %w", err)
	}
	bus.AppendStatus(map[string]string{"stage": "extracting"})

	extracted, err := r.extractWithFallback(ctx, req.URL, lang.Tag, req.NoCache)
	if err != nil {
		return nil, err
	}

	if req.WithSlides && extracted.VideoURL != "" && r.deps.Slides != nil {
		r.runSlidesAsync(ctx, req, extracted.VideoURL, bus)
	}

	if req.ExtractOnly {
		return &Result{RunID: req.RunID, ExtractedText: extracted.Text, Title: extracted.Title}, nil
	}

	if err := r.deps.Runs.UpdateStatus(ctx, req.RunID, models.RunStatusSummarizing, "", ""); err != nil {
		return nil, fmt.Errorf("updating run status: %w", err)
	}
	bus.AppendStatus(map[string]string{"stage": "summarizing"})

	summary, err := r.summarize(ctx, req, extracted, lang, book, bus)
	if err != nil {
		return nil, err
	}

	totals := book.TotalsWithPricing(nil)
	var prompt, completion *int64
	if len(totals.Groups) > 0 {
		prompt = totals.Groups[0].Prompt
		completion = totals.Groups[0].Completion
	}
	if err := r.deps.Runs.Complete(ctx, req.RunID, summary, prompt, completion, totals.TotalCostUSD); err != nil {
		return nil, fmt.Errorf("completing run: %w", err)
	}

	return &Result{
		RunID:         req.RunID,
		ExtractedText: extracted.Text,
		Title:         extracted.Title,
		SummaryText:   summary,
		Usage:         totals,
	}, nil
}

// extractWithFallback extracts raw, recursing exactly once into an embedded
// video URL when the page had no article text (apperror.VideoOnly wrapping
// an *extractor.VideoOnlyError).
func (r *Runner) extractWithFallback(ctx context.Context, raw, language string, noCache bool) (*extractor.Result, error) {
	result, err := r.extractOnce(ctx, raw, language, noCache)
	if err == nil {
		return result, nil
	}

	var videoOnly *extractor.VideoOnlyError
	if !errors.As(err, &videoOnly) || videoOnly.VideoURL == "" {
		return nil, err
	}

	recursed, rerr := r.extractOnce(ctx, videoOnly.VideoURL, language, noCache)
	if rerr != nil {
		// The original error is the more informative one: it names the page
		// the user actually gave us.
		return nil, err
	}
	return recursed, nil
}

func (r *Runner) extractOnce(ctx context.Context, raw, language string, noCache bool) (*extractor.Result, error) {
	if !noCache && r.deps.Transcripts != nil {
		if cached, err := r.deps.Transcripts.Get(ctx, raw); err == nil && cached != nil {
			return &extractor.Result{
				Kind:      urlutil.Classify(raw),
				SourceURL: raw,
				Text:      cached.Text,
			}, nil
		}
	}

	result, err := r.deps.Extractor.Extract(ctx, raw, language)
	if err != nil {
		return nil, err
	}

	if !noCache && r.deps.Transcripts != nil && result.Text != "" {
		if err := r.deps.Transcripts.Put(ctx, raw, string(result.Kind), result.Text); err != nil {
			r.deps.Logger.WarnContext(ctx, "caching transcript", slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// runSlidesAsync runs the slides pipeline in the background; it never blocks
// or fails the summary. Its single done-hook delivery is the "slides" SSE
// event, carrying {ok, error?}.
func (r *Runner) runSlidesAsync(ctx context.Context, req Request, videoURL string, bus *streammerge.Bus) {
	go func() {
		manifest, err := r.deps.Slides.Run(ctx, videoURL, req.SlidesDir, req.SlidesOptions, func(pct float64) {
			bus.AppendSlides(map[string]any{"progress": pct})
		})
		if err != nil {
			bus.AppendSlides(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		bus.AppendSlides(map[string]any{"ok": true, "count": len(manifest.Slides)})
		if req.OnSlidesManifest != nil {
			req.OnSlidesManifest(manifest)
		}
	}()
}

func firstNonEmptyString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func trimmedEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
