package slides

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OCR wraps the tesseract binary to extract and clean text from a slide
// image, used to caption slides and to let the summarizer reference
// on-screen text (titles, code, captions) that audio alone wouldn't carry.
type OCR struct {
	binary string
}

// NewOCR returns an OCR bound to the given tesseract binary path (may be
// empty; Recognize then fails with a clear error instead of silently
// skipping OCR).
func NewOCR(binary string) *OCR {
	return &OCR{binary: binary}
}

// Recognize runs tesseract against imagePath and returns cleaned text.
func (o *OCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	if o.binary == "" {
		return "", fmt.Errorf("tesseract binary not configured")
	}

	cmd := exec.CommandContext(ctx, o.binary, imagePath, "stdout")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running tesseract: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	return cleanOCRText(stdout.String()), nil
}

// cleanOCRText collapses tesseract's raw output into readable text: joins
// hyphenated line-wraps, drops empty lines, trims stray whitespace.
func cleanOCRText(raw string) string {
	lines := strings.Split(raw, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(kept) > 0 && strings.HasSuffix(kept[len(kept)-1], "-") {
			kept[len(kept)-1] = strings.TrimSuffix(kept[len(kept)-1], "-") + line
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}
