package extractor

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/jmylchreest/summarize/internal/urlutil"
)

// YouTubeTranscriptFetcher retrieves a video's auto-generated or uploaded
// caption track via YouTube's public timedtext endpoint and flattens it to
// plain text.
type YouTubeTranscriptFetcher struct {
	fetcher *urlutil.ResourceFetcher
}

// NewYouTubeTranscriptFetcher builds a fetcher using the given resource
// fetcher for the underlying HTTP call.
func NewYouTubeTranscriptFetcher(fetcher *urlutil.ResourceFetcher) *YouTubeTranscriptFetcher {
	return &YouTubeTranscriptFetcher{fetcher: fetcher}
}

type timedTextDoc struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Text  string  `xml:",chardata"`
}

// Fetch returns the flattened transcript text for videoID in the requested
// language (BCP-47 tag; empty requests the English "en" track).
func (f *YouTubeTranscriptFetcher) Fetch(ctx context.Context, videoID, language string) (string, error) {
	url := fmt.Sprintf("https://www.youtube.com/api/timedtext?v=%s&lang=%s", videoID, firstNonEmpty(language, "en"))

	rc, err := f.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetching caption track: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading caption track: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("no caption track available for video %s in language %q", videoID, language)
	}

	var doc timedTextDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parsing caption track: %w", err)
	}
	if len(doc.Texts) == 0 {
		return "", fmt.Errorf("caption track for video %s was empty", videoID)
	}

	var b strings.Builder
	for _, line := range doc.Texts {
		text := html.UnescapeString(strings.TrimSpace(line.Text))
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString(" ")
	}
	return collapseSpaces(b.String()), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
