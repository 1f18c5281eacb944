// Package extractor turns a fetchable input (website, YouTube URL, or
// direct asset link) into plain text ready for summarization, choosing a
// strategy by urlutil.Classify and falling back across strategies the way a
// human would: try the article body, then look for an embedded video, then
// give up with a VideoOnly error so the caller can report what happened.
package extractor

import (
	"context"
	"fmt"
	"io"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/internal/urlutil"
)

// Result is the extracted content plus enough metadata for caching and for
// deciding whether a slides pipeline run makes sense.
type Result struct {
	Kind      urlutil.Kind
	SourceURL string
	Title     string
	Text      string
	// VideoURL is set when extraction found an associated video worth
	// running the slides pipeline against (a YouTube URL, or a direct
	// video asset link), even if Text came from an article body.
	VideoURL string
}

// VideoOnlyError is the underlying error wrapped by an apperror.VideoOnly
// result when a website had no article text but did have an embedded video,
// carrying that video's URL so the caller can recurse into it once.
type VideoOnlyError struct {
	VideoURL string
}

func (e *VideoOnlyError) Error() string {
	if e.VideoURL == "" {
		return "no extractable text or video found"
	}
	return fmt.Sprintf("page has no extractable text, only an embedded video: %s", e.VideoURL)
}

// Extractor dispatches to the strategy matching a classified input.
type Extractor struct {
	fetcher *urlutil.ResourceFetcher
	yt      *YouTubeTranscriptFetcher
}

// New builds an Extractor using fetcher for HTTP/file retrieval.
func New(fetcher *urlutil.ResourceFetcher) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		yt:      NewYouTubeTranscriptFetcher(fetcher),
	}
}

// Extract fetches and extracts text for raw, following the strategy order:
// YouTube transcript, asset-specific handling, then HTML article body with
// a video-only-page fallback.
func (e *Extractor) Extract(ctx context.Context, raw string, language string) (*Result, error) {
	kind := urlutil.Classify(raw)

	switch kind {
	case urlutil.KindYouTube:
		return e.extractYouTube(ctx, raw, language)
	case urlutil.KindAsset:
		return e.extractAsset(ctx, raw)
	default:
		return e.extractWebsite(ctx, raw)
	}
}

func (e *Extractor) extractYouTube(ctx context.Context, raw, language string) (*Result, error) {
	videoID, ok := urlutil.YouTubeVideoID(raw)
	if !ok {
		return nil, apperror.Wrap(apperror.InputValidation, fmt.Errorf("not a recognizable YouTube URL: %s", raw))
	}

	transcript, err := e.yt.Fetch(ctx, videoID, language)
	if err != nil {
		return nil, apperror.Wrap(apperror.Extraction, fmt.Errorf("fetching YouTube transcript: %w", err))
	}

	return &Result{
		Kind:      urlutil.KindYouTube,
		SourceURL: raw,
		Title:     videoID,
		Text:      transcript,
		VideoURL:  raw,
	}, nil
}

func (e *Extractor) extractAsset(ctx context.Context, raw string) (*Result, error) {
	rc, err := e.fetcher.Fetch(ctx, raw)
	if err != nil {
		return nil, apperror.Wrap(apperror.Extraction, fmt.Errorf("fetching asset: %w", err))
	}
	defer rc.Close()

	switch {
	case isVideoAsset(raw):
		// A direct link to a video file has no text to extract on its
		// own; the orchestrator runs the slides pipeline and OCR against
		// it and summarizes from that instead.
		return &Result{Kind: urlutil.KindAsset, SourceURL: raw, VideoURL: raw}, nil
	default:
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, apperror.Wrap(apperror.Extraction, fmt.Errorf("reading asset: %w", err))
		}
		return &Result{Kind: urlutil.KindAsset, SourceURL: raw, Text: string(data)}, nil
	}
}

func (e *Extractor) extractWebsite(ctx context.Context, raw string) (*Result, error) {
	rc, err := e.fetcher.Fetch(ctx, raw)
	if err != nil {
		return nil, apperror.Wrap(apperror.Extraction, fmt.Errorf("fetching page: %w", err))
	}
	defer rc.Close()

	article, err := ExtractArticle(rc)
	if err != nil {
		return nil, apperror.Wrap(apperror.Extraction, fmt.Errorf("parsing page: %w", err))
	}

	result := &Result{
		Kind:      urlutil.KindWebsite,
		SourceURL: raw,
		Title:     article.Title,
		Text:      article.Text,
	}

	if article.Text == "" {
		return nil, apperror.Wrap(apperror.VideoOnly, &VideoOnlyError{VideoURL: article.VideoURL})
	}

	if article.VideoURL != "" {
		result.VideoURL = article.VideoURL
	}

	return result, nil
}

func isVideoAsset(raw string) bool {
	switch urlutil.GetScheme(raw) {
	case urlutil.SchemeHTTP, urlutil.SchemeHTTPS:
	default:
		return false
	}
	for _, ext := range []string{".mp4", ".mov", ".mkv", ".webm"} {
		if len(raw) >= len(ext) && raw[len(raw)-len(ext):] == ext {
			return true
		}
	}
	return false
}
