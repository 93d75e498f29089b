package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Download("abc", fmt.Errorf("exit status 1"))

	assert.True(t, Is(err, ErrDownload))
	assert.False(t, Is(err, ErrAlignment))

	wrapped := fmt.Errorf("wizard: %w", err)
	assert.True(t, Is(wrapped, ErrDownload))
	assert.Equal(t, CodeDownload, CodeOf(wrapped))
}

func TestUserCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"info", InfoExtraction("vid1", "no results"), "ARESx04x01xvid1"},
		{"chapters", ChapterExtraction("vid2", "none"), "ARESx04x02xvid2"},
		{"download", Download("PL3", nil), "ARESx04x03xPL3"},
		{"align", Alignment("vid4", nil), "ARESx04x04xvid4"},
		{"segment", Segmentation("vid5", nil), "ARESx04x05xvid5"},
		{"plain", NotFound("missing"), "NOT_FOUND"},
		{"foreign", fmt.Errorf("boom"), "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserCode(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrNoMatch.HTTPStatus())
	assert.Equal(t, http.StatusConflict, ErrAlreadyExists.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, ErrUpstream.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrSegmentation.HTTPStatus())
}

func TestWithCauseKeepsMediaID(t *testing.T) {
	base := ChapterExtraction("vid", "no chapters found")
	err := base.WithCause(fmt.Errorf("comments disabled"))

	assert.Equal(t, "vid", err.MediaID)
	assert.Equal(t, "no chapters found: comments disabled", err.Error())
	assert.True(t, CodeChapterExtraction.IsStage())
	assert.False(t, CodeNotFound.IsStage())
}
