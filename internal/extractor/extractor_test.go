package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmylchreest/summarize/internal/urlutil"
	"github.com/jmylchreest/summarize/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArticle_StripsChromeKeepsBodyText(t *testing.T) {
	htmlDoc := `<html><head><title>My Article</title><style>.x{}</style></head>
<body><nav>Home About</nav><article><h1>Headline</h1><p>First paragraph.</p></article>
<footer>copyright</footer></body></html>`

	a, err := ExtractArticle(strings.NewReader(htmlDoc))
	require.NoError(t, err)
	assert.Equal(t, "My Article", a.Title)
	assert.Contains(t, a.Text, "Headline")
	assert.Contains(t, a.Text, "First paragraph.")
	assert.NotContains(t, a.Text, "Home About")
	assert.NotContains(t, a.Text, "copyright")
}

func TestExtractArticle_FindsEmbeddedVideo(t *testing.T) {
	htmlDoc := `<html><body><iframe src="https://www.youtube.com/embed/abc123"></iframe></body></html>`
	a, err := ExtractArticle(strings.NewReader(htmlDoc))
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/embed/abc123", a.VideoURL)
}

func TestExtractArticle_NoTextNoVideo(t *testing.T) {
	htmlDoc := `<html><body></body></html>`
	a, err := ExtractArticle(strings.NewReader(htmlDoc))
	require.NoError(t, err)
	assert.Empty(t, a.Text)
	assert.Empty(t, a.VideoURL)
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", collapseSpaces("  a   b\n\tc  "))
}

func TestExtractor_Extract_WebsiteViaFileURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><head><title>T</title></head><body><p>hello there</p></body></html>`), 0644))

	fetcher := urlutil.NewResourceFetcher(httpclient.DefaultConfig())
	e := New(fetcher)

	res, err := e.Extract(context.Background(), "file://"+path, "")
	require.NoError(t, err)
	assert.Equal(t, "T", res.Title)
	assert.Contains(t, res.Text, "hello there")
}

func TestExtractor_Extract_VideoOnlyPageReturnsVideoOnlyError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><iframe src="https://youtu.be/abc123"></iframe></body></html>`), 0644))

	fetcher := urlutil.NewResourceFetcher(httpclient.DefaultConfig())
	e := New(fetcher)

	_, err := e.Extract(context.Background(), "file://"+path, "")
	require.Error(t, err)

	var videoOnly *VideoOnlyError
	require.ErrorAs(t, err, &videoOnly)
	assert.Equal(t, "https://youtu.be/abc123", videoOnly.VideoURL)
}
