// Package validation validates API requests using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/aresapp/ares-server/internal/errors"
)

var (
	videoIDRe    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistIDRe = regexp.MustCompile(`^(PL|OL|UU|FL|RD|LL)[A-Za-z0-9_-]{10,}$`)
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the media-specific rules registered:
//
//	ytid       an 11 character video ID or a playlist ID
//	mediatype  "video" or "playlist"
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("ytid", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return IsVideoID(s) || IsPlaylistID(s)
	})
	_ = v.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "video" || s == "playlist"
	})

	return &Validator{v: v}
}

// IsVideoID reports whether s looks like a YouTube video ID.
func IsVideoID(s string) bool { return videoIDRe.MatchString(s) }

// IsPlaylistID reports whether s looks like a YouTube playlist ID.
func IsPlaylistID(s string) bool { return playlistIDRe.MatchString(s) }

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + e.Param() + " is empty"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "ytid":
		return "must be a YouTube video or playlist ID"
	case "mediatype":
		return "must be video or playlist"
	default:
		return "is invalid"
	}
}
