package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/validation"
)

type resumeRequest struct {
	GameID    int64  `json:"gameId" validate:"gt=0"`
	MediaID   string `json:"mediaId" validate:"required,ytid"`
	MediaType string `json:"mediaType" validate:"required,mediatype"`
}

type batchRequest struct {
	Names []string `json:"names" validate:"min=1,max=200,dive,required"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(resumeRequest{GameID: 1942, MediaID: "dQw4w9WgXcQ", MediaType: "video"}))
	assert.NoError(t, v.Validate(resumeRequest{GameID: 7, MediaID: "PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG", MediaType: "playlist"}))
	assert.NoError(t, v.Validate(batchRequest{Names: []string{"Halo", "Hades"}}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
		wantMsg   string
	}{
		{"bad media id", resumeRequest{GameID: 1, MediaID: "nope", MediaType: "video"}, "mediaId", "must be a YouTube video or playlist ID"},
		{"bad media type", resumeRequest{GameID: 1, MediaID: "dQw4w9WgXcQ", MediaType: "album"}, "mediaType", "must be video or playlist"},
		{"missing game", resumeRequest{MediaID: "dQw4w9WgXcQ", MediaType: "video"}, "gameId", "must be greater than 0"},
		{"empty batch", batchRequest{}, "names", "must contain at least 1 items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestIDHelpers(t *testing.T) {
	assert.True(t, validation.IsVideoID("dQw4w9WgXcQ"))
	assert.False(t, validation.IsVideoID("dQw4w9WgXc"))
	assert.True(t, validation.IsPlaylistID("PLx0sYbCqOb8TBPRdmBHs5Iftvv9TPboYG"))
	assert.False(t, validation.IsPlaylistID("dQw4w9WgXcQ"))
}
