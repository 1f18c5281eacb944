package extractor

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Article is the plain-text result of parsing an HTML document.
type Article struct {
	Title    string
	Text     string
	VideoURL string
}

var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true,
	"footer": true, "aside": true, "noscript": true, "svg": true, "form": true,
}

// ExtractArticle walks an HTML document and returns its visible text,
// title, and (if present) the source of the first embedded video, the way
// a reader-mode extension would: strip chrome (nav/header/footer/script),
// keep body text.
func ExtractArticle(r io.Reader) (*Article, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	a := &Article{}
	var walk func(*html.Node)
	var b strings.Builder

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if n.Data == "title" && a.Title == "" && n.FirstChild != nil {
				a.Title = strings.TrimSpace(n.FirstChild.Data)
			}
			if n.Data == "video" || n.Data == "iframe" {
				if src := attr(n, "src"); src != "" && a.VideoURL == "" && looksLikeVideoSrc(src) {
					a.VideoURL = src
				}
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	a.Text = collapseSpaces(b.String())
	return a, nil
}

func attr(n *html.Node, key string) string {
	for _, at := range n.Attr {
		if at.Key == key {
			return at.Val
		}
	}
	return ""
}

func looksLikeVideoSrc(src string) bool {
	lower := strings.ToLower(src)
	return strings.Contains(lower, "youtube.com") ||
		strings.Contains(lower, "youtu.be") ||
		strings.Contains(lower, "vimeo.com") ||
		strings.HasSuffix(lower, ".mp4")
}

func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
