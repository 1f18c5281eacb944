package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/internal/models"
	"github.com/jmylchreest/summarize/internal/runner"
	"github.com/jmylchreest/summarize/internal/slides"
	"github.com/jmylchreest/summarize/internal/streammerge"
)

// summarizeFlags holds every value bound from the representative CLI
// surface. Flag names are fixed for compatibility even where a value isn't
// yet wired to a strategy the extractor implements (firecrawlMode,
// markdownMode: see DESIGN.md).
type summarizeFlags struct {
	model            string
	length           string
	language         string
	stream           string
	render           string
	extract          bool
	extractOnly      bool
	jsonOutput       bool
	metrics          string
	firecrawlMode    string
	markdownMode     string
	timeout          string
	maxOutputTokens  int
	slides           bool
	slidesThreshold  float64
	slidesOCR        bool
	noCache          bool
	noMediaCache     bool
	cacheStats       bool
	clearCache       bool
}

var flags summarizeFlags

func registerSummarizeFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&flags.model, "model", "", "model preset or provider/name id (default: config model, falling back to \"auto\")")
	f.StringVar(&flags.length, "length", "medium", "summary length: short, medium, long, xl, xxl")
	f.StringVar(&flags.language, "language", "", "output language (empty: auto-detect from content)")
	f.StringVar(&flags.stream, "stream", "auto", "streaming mode: auto, on, off")
	f.StringVar(&flags.render, "render", "plain", "output rendering: plain, markdown")
	f.BoolVar(&flags.extract, "extract", false, "show extracted content alongside the summary")
	f.BoolVar(&flags.extractOnly, "extract-only", false, "extract content and skip summarization")
	f.BoolVar(&flags.jsonOutput, "json", false, "emit the result as JSON instead of formatted text")
	f.StringVar(&flags.metrics, "metrics", "off", "usage/cost reporting: off, on, detailed")
	f.StringVar(&flags.firecrawlMode, "firecrawl", "auto", "Firecrawl extraction mode: off, auto, always")
	f.StringVar(&flags.markdownMode, "markdown", "auto", "HTML-to-Markdown conversion mode: off, auto, llm")
	f.StringVar(&flags.timeout, "timeout", "2m", "overall run timeout (e.g. 30s, 30, 2m, 5000ms)")
	f.IntVar(&flags.maxOutputTokens, "max-output-tokens", 0, "cap on generated tokens (0: model default)")
	f.BoolVar(&flags.slides, "slides", false, "extract slide images from a video source")
	f.Float64Var(&flags.slidesThreshold, "slides-scene-threshold", 0, "override the slide scene-change threshold (0: use the fixed default of 0.4)")
	f.BoolVar(&flags.slidesOCR, "slides-ocr", false, "run OCR over extracted slides")
	f.BoolVar(&flags.noCache, "no-cache", false, "bypass the transcript/content/summary caches")
	f.BoolVar(&flags.noMediaCache, "no-media-cache", false, "bypass the downloaded-media cache")
	f.BoolVar(&flags.cacheStats, "cache-stats", false, "print cache statistics and exit")
	f.BoolVar(&flags.clearCache, "clear-cache", false, "clear all caches and exit")
}

// runSummarize is rootCmd's RunE: one URL in, one summary out.
func runSummarize(c *cobra.Command, args []string) error {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := buildApp(ctx, appConfig, appLogger)
	if err != nil {
		return apperror.Wrap(apperror.Configuration, err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			appLogger.Warn("closing database", "error", cerr.Error())
		}
	}()

	if flags.cacheStats {
		return printCacheStats(ctx, a)
	}
	if flags.clearCache {
		return clearCaches(ctx, a)
	}

	if len(args) == 0 {
		return apperror.Wrap(apperror.InputValidation, fmt.Errorf("a URL argument is required"))
	}
	url := args[0]

	if flags.extractOnly && flags.extract {
		return apperror.Wrap(apperror.InputValidation, fmt.Errorf("--extract-only and --extract are mutually exclusive"))
	}

	timeout, err := parseTimeout(flags.timeout)
	if err != nil {
		return apperror.Wrap(apperror.InputValidation, err)
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	modelPreset := flags.model
	if modelPreset == "" {
		modelPreset = appConfig.Model
	}
	if modelPreset == "" {
		modelPreset = "auto"
	}

	runID := models.NewULID()
	req := runner.Request{
		RunID:           runID,
		URL:             url,
		Mode:            "url",
		ModelPreset:     modelPreset,
		Length:          flags.length,
		Language:        flags.language,
		MaxCharacters:   0,
		MaxOutputTokens: flags.maxOutputTokens,
		ExtractOnly:     flags.extractOnly,
		WithSlides:      flags.slides,
		SlidesDir:       a.cfg.MediaCachePath() + "/slides/" + runID.String(),
		SlidesOptions: slides.Options{
			SceneThreshold: flags.slidesThreshold,
			OCR:            flags.slidesOCR,
		},
		NoCache:      flags.noCache,
		NoMediaCache: flags.noMediaCache,
	}

	var stopStream func()
	if wantsStreaming(flags.stream) {
		stopStream = streamToStdout(runCtx, a.deps.Buses, runID.String())
	}

	result, runErr := a.runner.Run(runCtx, req)
	if stopStream != nil {
		stopStream()
	}
	if runErr != nil {
		return runErr
	}

	return printResult(result)
}

func wantsStreaming(mode string) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default: // "auto": stream only to an interactive terminal
		info, err := os.Stdout.Stat()
		return err == nil && (info.Mode()&os.ModeCharDevice) != 0
	}
}

// streamToStdout subscribes to runID's bus and prints chunk deltas as they
// arrive, until the caller invokes the returned stop function. The bus may
// not exist yet at call time (Runner.Run allocates it), so this polls
// briefly before subscribing, the same short-retry idiom the daemon's own
// SSE handler uses when a client races a run's startup.
func streamToStdout(ctx context.Context, buses *streammerge.Registry, runID string) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		var bus *streammerge.Bus
		for i := 0; i < 200; i++ {
			bus = buses.Get(runID)
			if bus != nil {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
		if bus == nil {
			return
		}
		events, unsubscribe := bus.Subscribe()
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Name == streammerge.EventChunk {
					if chunk, ok := ev.Data.(streammerge.ChunkData); ok {
						fmt.Print(chunk.Text)
					}
				}
				if ev.Name == streammerge.EventDone {
					fmt.Println()
					return
				}
			}
		}
	}()
	return func() { <-done }
}

func printResult(result *runner.Result) error {
	if flags.jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if flags.extract || flags.extractOnly {
		fmt.Println(renderText(result.ExtractedText))
		if flags.extractOnly {
			return nil
		}
		fmt.Println()
	}

	if !wantsStreaming(flags.stream) {
		fmt.Println(renderText(result.SummaryText))
	}

	if flags.metrics != "off" {
		printMetrics(result)
	}
	return nil
}

func printMetrics(result *runner.Result) {
	fmt.Fprintf(os.Stderr, "\n--- usage ---\n")
	for _, group := range result.Usage.Groups {
		fmt.Fprintf(os.Stderr, "%s/%s: prompt=%s completion=%s cost=%s\n",
			group.Key.Provider, group.Key.Model, int64Str(group.Prompt), int64Str(group.Completion), costStr(group.CostUSD))
	}
	if flags.metrics == "detailed" {
		fmt.Fprintf(os.Stderr, "total cost: %s\n", costStr(result.Usage.TotalCostUSD))
	}
}

func int64Str(v *int64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatInt(*v, 10)
}

func costStr(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("$%.4f", *v)
}

// parseTimeout accepts a bare integer (seconds) or a Go duration string
// ("30s", "2m", "5000ms"), per the configuration contract's examples.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 2 * time.Minute, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid --timeout %q: %w", raw, err)
	}
	return d, nil
}

// renderText applies the --render mode. "plain" strips the handful of
// markdown emphasis markers a summary might contain; "markdown" passes the
// text through untouched, since the terminal (or a piping consumer) is
// expected to interpret it.
func renderText(text string) string {
	if flags.render != "plain" {
		return text
	}
	replacer := strings.NewReplacer("**", "", "__", "", "`", "")
	return replacer.Replace(text)
}
