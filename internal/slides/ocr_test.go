package slides

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognize_NoBinaryConfigured(t *testing.T) {
	o := NewOCR("")
	_, err := o.Recognize(context.Background(), "whatever.png")
	require.Error(t, err)
}

func TestCleanOCRText_JoinsHyphenatedWraps(t *testing.T) {
	raw := "This is a hyph-\nenated word.\n\nNext paragraph."
	assert.Equal(t, "This is a hyphenated word. Next paragraph.", cleanOCRText(raw))
}

func TestCleanOCRText_DropsBlankLines(t *testing.T) {
	raw := "line one\n\n\nline two\n   \nline three"
	assert.Equal(t, "line one line two line three", cleanOCRText(raw))
}

func TestCleanOCRText_EmptyInput(t *testing.T) {
	assert.Equal(t, "", cleanOCRText(""))
}
