// Package slides extracts representative still frames from a video for use
// alongside its summary: probe the duration, plan candidate timestamps,
// extract and deduplicate near-identical frames, clean them up with OCR,
// and cache the result per video so a repeat run is free.
package slides

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/internal/ffmpeg"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var showinfoPtsTime = regexp.MustCompile(`pts_time:([0-9.]+)`)

// parseShowinfoTimestamps reads ffmpeg's showinfo stderr output and
// extracts each selected frame's pts_time as a Duration.
func parseShowinfoTimestamps(r io.Reader) []time.Duration {
	var out []time.Duration
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := showinfoPtsTime.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		secs, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out = append(out, time.Duration(secs*float64(time.Second)))
	}
	return out
}

// Options configures one slides extraction run.
type Options struct {
	// TargetCount is the desired number of slides; actual output may be
	// fewer if the video is short or frames are too similar.
	TargetCount int
	// SceneThreshold is the ffmpeg scene-change score (0..1) above which a
	// frame is considered a new scene worth keeping.
	SceneThreshold float64
	// MinSpacing is the minimum gap enforced between two kept timestamps,
	// preventing a burst of near-duplicate scene cuts from crowding out
	// coverage of the rest of the video.
	MinSpacing time.Duration
	// OCR enables text cleanup/annotation of extracted frames.
	OCR bool
	// Workers bounds extraction/OCR concurrency; clamped to [1, 16].
	Workers int
}

func (o Options) clamped() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Workers > 16 {
		o.Workers = 16
	}
	if o.TargetCount <= 0 {
		o.TargetCount = 8
	}
	if o.SceneThreshold <= 0 {
		o.SceneThreshold = 0.4
	}
	if o.MinSpacing <= 0 {
		o.MinSpacing = 2 * time.Second
	}
	return o
}

// Slide is one extracted frame.
type Slide struct {
	Timestamp time.Duration
	Path      string // absolute path to the PNG file
	OCRText   string
}

// Manifest is the outcome of one extraction run.
type Manifest struct {
	VideoPath string
	Dir       string
	Slides    []Slide
}

// Pipeline runs the slide extraction stages against a video file.
type Pipeline struct {
	prober  *ffmpeg.Prober
	ffmpegB string
	ocr     *OCR
	sem     *semaphore.Weighted
}

// New builds a Pipeline using the given ffmpeg/ffprobe binaries.
func New(ffmpegPath, ffprobePath, tesseractPath string) *Pipeline {
	return &Pipeline{
		prober:  ffmpeg.NewProber(ffprobePath),
		ffmpegB: ffmpegPath,
		ocr:     NewOCR(tesseractPath),
	}
}

// Run extracts slides from videoPath into outDir, reporting progress
// through onProgress as a fraction in [0,1] (nil is fine to ignore).
func (p *Pipeline) Run(ctx context.Context, videoPath, outDir string, opts Options, onProgress func(float64)) (*Manifest, error) {
	opts = opts.clamped()
	report := func(f float64) {
		if onProgress != nil {
			onProgress(f)
		}
	}

	probe, err := p.prober.Probe(ctx, videoPath)
	if err != nil {
		return nil, apperror.Wrap(apperror.SlideExtraction, fmt.Errorf("probing video: %w", err))
	}
	duration := time.Duration(probe.Duration()) * time.Second
	if duration <= 0 {
		return nil, apperror.Wrap(apperror.SlideExtraction, fmt.Errorf("video %s reported zero duration", videoPath))
	}
	report(0.1) // probe done

	timestamps, err := p.planTimestamps(ctx, videoPath, duration, opts)
	if err != nil {
		return nil, apperror.Wrap(apperror.SlideExtraction, err)
	}
	report(0.25) // segmentation done

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, apperror.Wrap(apperror.SlideExtraction, fmt.Errorf("creating slides directory: %w", err))
	}

	slides, err := p.extractAndRefine(ctx, videoPath, outDir, timestamps, opts, report)
	if err != nil {
		return nil, apperror.Wrap(apperror.SlideExtraction, err)
	}

	return &Manifest{VideoPath: videoPath, Dir: outDir, Slides: slides}, nil
}

// planTimestamps picks candidate timestamps: scene-change detection first,
// falling back to a uniform spread across the video if too few scenes are
// found, then enforcing MinSpacing and capping at TargetCount.
func (p *Pipeline) planTimestamps(ctx context.Context, videoPath string, duration time.Duration, opts Options) ([]time.Duration, error) {
	scenes, err := p.detectScenes(ctx, videoPath, opts.SceneThreshold)
	if err != nil || len(scenes) < opts.TargetCount/2 {
		scenes = uniformTimestamps(duration, opts.TargetCount)
	}

	spaced := enforceMinSpacing(scenes, opts.MinSpacing)
	if len(spaced) > opts.TargetCount {
		spaced = uniformSample(spaced, opts.TargetCount)
	}
	return spaced, nil
}

func uniformTimestamps(duration time.Duration, count int) []time.Duration {
	if count <= 0 {
		return nil
	}
	step := duration / time.Duration(count+1)
	out := make([]time.Duration, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, step*time.Duration(i))
	}
	return out
}

func enforceMinSpacing(timestamps []time.Duration, minSpacing time.Duration) []time.Duration {
	if len(timestamps) == 0 {
		return nil
	}
	out := []time.Duration{timestamps[0]}
	for _, ts := range timestamps[1:] {
		if ts-out[len(out)-1] >= minSpacing {
			out = append(out, ts)
		}
	}
	return out
}

func uniformSample(timestamps []time.Duration, count int) []time.Duration {
	if count >= len(timestamps) {
		return timestamps
	}
	out := make([]time.Duration, 0, count)
	step := float64(len(timestamps)-1) / float64(count-1)
	for i := 0; i < count; i++ {
		idx := int(float64(i) * step)
		out = append(out, timestamps[idx])
	}
	return out
}

// extractAndRefine extracts a frame per timestamp (bounded by Workers
// concurrency), drops perceptual near-duplicates, and optionally OCRs the
// survivors.
func (p *Pipeline) extractAndRefine(ctx context.Context, videoPath, outDir string, timestamps []time.Duration, opts Options, report func(float64)) ([]Slide, error) {
	sem := semaphore.NewWeighted(int64(opts.Workers))
	slides := make([]Slide, len(timestamps))

	g, gctx := errgroup.WithContext(ctx)
	for i, ts := range timestamps {
		i, ts := i, ts
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			path := filepath.Join(outDir, fmt.Sprintf("slide-%03d.png", i))
			if err := p.extractFrame(gctx, videoPath, ts, path); err != nil {
				return err
			}
			slides[i] = Slide{Timestamp: ts, Path: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting frames: %w", err)
	}
	report(0.6) // extraction done

	deduped, err := dedupeByPerceptualHash(slides)
	if err != nil {
		return nil, fmt.Errorf("deduplicating frames: %w", err)
	}
	report(0.75) // dedupe done

	if opts.OCR {
		for i := range deduped {
			text, err := p.ocr.Recognize(ctx, deduped[i].Path)
			if err != nil {
				continue // OCR failures degrade gracefully to an untagged slide
			}
			deduped[i].OCRText = text
		}
	}
	report(1.0) // OCR/cleaning done

	return deduped, nil
}

func (p *Pipeline) extractFrame(ctx context.Context, videoPath string, ts time.Duration, outPath string) error {
	cmd := ffmpeg.NewCommandBuilder(p.ffmpegB).
		HideBanner().
		Overwrite().
		InputArgs("-ss", fmt.Sprintf("%.3f", ts.Seconds())).
		Input(videoPath).
		OutputArgs("-frames:v", "1", "-q:v", "2").
		Output(outPath).
		Build()
	return cmd.Run(ctx)
}

// detectScenes runs ffmpeg's scene-change filter and parses the pts_time
// values showinfo writes to stderr for frames it selects above threshold.
func (p *Pipeline) detectScenes(ctx context.Context, videoPath string, threshold float64) ([]time.Duration, error) {
	cmd := ffmpeg.NewCommandBuilder(p.ffmpegB).
		HideBanner().
		LogLevel("info").
		Input(videoPath).
		VideoFilter(fmt.Sprintf("select='gt(scene,%.2f)',showinfo", threshold)).
		OutputArgs("-f", "null").
		Output("-").
		Build()

	stderr, err := cmd.Stderr()
	if err != nil {
		return nil, fmt.Errorf("attaching stderr: %w", err)
	}
	if err := cmd.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting scene detection: %w", err)
	}

	timestamps := parseShowinfoTimestamps(stderr)
	_ = cmd.Wait()
	return timestamps, nil
}
