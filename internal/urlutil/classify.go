package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// Kind classifies what an input string points at, driving both the
// extraction strategy order and the model router's candidate rules.
type Kind string

const (
	// KindWebsite is an ordinary HTML page, extracted as an article.
	KindWebsite Kind = "website"
	// KindYouTube is a YouTube watch/shorts URL, extracted via transcript.
	KindYouTube Kind = "youtube"
	// KindAsset is a direct link to a non-HTML binary (PDF, video file,
	// image), extracted via its own strategy rather than HTML parsing.
	KindAsset Kind = "asset"
)

var assetExtensions = map[string]bool{
	".pdf": true, ".mp4": true, ".mov": true, ".mkv": true, ".webm": true,
	".mp3": true, ".wav": true, ".m4a": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".pptx": true, ".docx": true, ".txt": true,
}

var youtubeHosts = map[string]bool{
	"youtube.com": true, "www.youtube.com": true, "m.youtube.com": true,
	"youtu.be": true, "music.youtube.com": true,
}

// Classify determines the Kind of a fetchable input string.
func Classify(raw string) Kind {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return KindWebsite
	}

	host := strings.ToLower(parsed.Hostname())
	if youtubeHosts[host] {
		return KindYouTube
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	if assetExtensions[ext] {
		return KindAsset
	}

	return KindWebsite
}

// YouTubeVideoID extracts the video ID from a recognized YouTube URL. It
// returns ok=false for any URL Classify wouldn't call KindYouTube.
func YouTubeVideoID(raw string) (id string, ok bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if !youtubeHosts[host] {
		return "", false
	}

	if host == "youtu.be" {
		id = strings.Trim(parsed.Path, "/")
		return id, id != ""
	}

	if strings.HasPrefix(parsed.Path, "/shorts/") {
		id = strings.TrimPrefix(parsed.Path, "/shorts/")
		id = strings.SplitN(id, "/", 2)[0]
		return id, id != ""
	}

	id = parsed.Query().Get("v")
	return id, id != ""
}
