package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"https://example.com/article":        KindWebsite,
		"https://example.com/report.pdf":     KindAsset,
		"https://example.com/clip.mp4":       KindAsset,
		"https://www.youtube.com/watch?v=x":  KindYouTube,
		"https://youtu.be/abc123":            KindYouTube,
		"https://m.youtube.com/shorts/abc12": KindYouTube,
	}
	for input, want := range cases {
		assert.Equal(t, want, Classify(input), input)
	}
}

func TestYouTubeVideoID(t *testing.T) {
	id, ok := YouTubeVideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	id, ok = YouTubeVideoID("https://youtu.be/dQw4w9WgXcQ")
	assert.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	id, ok = YouTubeVideoID("https://www.youtube.com/shorts/dQw4w9WgXcQ")
	assert.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	_, ok = YouTubeVideoID("https://example.com/video")
	assert.False(t, ok)
}
