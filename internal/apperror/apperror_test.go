package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_NilErrReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(InputValidation, nil))
}

func TestWrap_AsRoundTrip(t *testing.T) {
	err := Wrap(RateLimit, errors.New("429 from provider"))

	kind, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, RateLimit, kind)
}

func TestAs_PlainErrorHasNoKind(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}

func TestExitCode_KnownAndDefault(t *testing.T) {
	assert.Equal(t, 2, ExitCode(Configuration))
	assert.Equal(t, 1, ExitCode(Extraction))
}

func TestHTTPStatus_KnownAndDefault(t *testing.T) {
	assert.Equal(t, 400, HTTPStatus(InputValidation))
	assert.Equal(t, 429, HTTPStatus(RateLimit))
	assert.Equal(t, 500, HTTPStatus(SlideExtraction))
}
