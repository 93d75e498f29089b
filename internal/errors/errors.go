// Package errors provides standardized domain errors with codes for the Ares server.
//
// Usage:
//
//	// In pipeline stages - return typed errors
//	if len(chapters) == 0 {
//	    return nil, errors.ChapterExtraction(videoID, "no chapters found")
//	}
//
//	// In the wizard or handlers - check with errors.Is
//	if errors.Is(err, errors.ErrAlreadyExists) {
//	    response.Conflict(w, err.Error(), logger)
//	    return
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeDownload:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeValidation    Code = "VALIDATION"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"
	CodeUpstream      Code = "UPSTREAM"
	CodeNoMatch       Code = "NO_MATCH"

	// Pipeline stage codes.
	CodeInfoExtraction    Code = "INFO_EXTRACTION"
	CodeChapterExtraction Code = "CHAPTER_EXTRACTION"
	CodeDownload          Code = "DOWNLOAD"
	CodeAlignment         Code = "ALIGNMENT"
	CodeSegmentation      Code = "SEGMENTATION"
)

// stageTags maps pipeline codes to the numeric tag used in user-visible codes.
var stageTags = map[Code]string{
	CodeInfoExtraction:    "01",
	CodeChapterExtraction: "02",
	CodeDownload:          "03",
	CodeAlignment:         "04",
	CodeSegmentation:      "05",
}

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeNoMatch:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeInfoExtraction, CodeChapterExtraction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// IsStage reports whether the code belongs to a pipeline stage.
func (c Code) IsStage() bool {
	_, ok := stageTags[c]
	return ok
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	// MediaID is the video or playlist the failing stage was working on.
	MediaID string `json:"mediaId,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// UserCode renders the stage code shown to operators, e.g. ARESx04x03xdQw4w9WgXcQ.
// Non-stage errors return their plain code.
func (e *Error) UserCode() string {
	tag, ok := stageTags[e.Code]
	if !ok {
		return string(e.Code)
	}
	return fmt.Sprintf("ARESx04x%sx%s", tag, e.MediaID)
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		MediaID: e.MediaID,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		MediaID: e.MediaID,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
	ErrUpstream          = &Error{Code: CodeUpstream, Message: "upstream error"}
	ErrNoMatch           = &Error{Code: CodeNoMatch, Message: "no match"}
	ErrInfoExtraction    = &Error{Code: CodeInfoExtraction, Message: "info extraction failed"}
	ErrChapterExtraction = &Error{Code: CodeChapterExtraction, Message: "chapter extraction failed"}
	ErrDownload          = &Error{Code: CodeDownload, Message: "download failed"}
	ErrAlignment         = &Error{Code: CodeAlignment, Message: "alignment failed"}
	ErrSegmentation      = &Error{Code: CodeSegmentation, Message: "segmentation failed"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// AlreadyExistsf creates an already exists error with formatted message.
func AlreadyExistsf(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Upstreamf creates an upstream error with formatted message.
func Upstreamf(format string, args ...any) *Error {
	return &Error{Code: CodeUpstream, Message: fmt.Sprintf(format, args...)}
}

// NoMatch creates a no match error.
func NoMatch(msg string) *Error {
	return &Error{Code: CodeNoMatch, Message: msg}
}

// InfoExtraction reports that search or listing parsing failed for a media.
func InfoExtraction(mediaID, msg string) *Error {
	return &Error{Code: CodeInfoExtraction, Message: msg, MediaID: mediaID}
}

// ChapterExtraction reports that every chapter strategy was exhausted.
func ChapterExtraction(mediaID, msg string) *Error {
	return &Error{Code: CodeChapterExtraction, Message: msg, MediaID: mediaID}
}

// Download reports a fetch or transcode failure after the retry budget.
func Download(mediaID string, cause error) *Error {
	return &Error{Code: CodeDownload, Message: "download failed", MediaID: mediaID, cause: cause}
}

// Alignment reports a waveform read or processing failure.
func Alignment(mediaID string, cause error) *Error {
	return &Error{Code: CodeAlignment, Message: "chapter alignment failed", MediaID: mediaID, cause: cause}
}

// Segmentation reports a transcoder, probe or manifest failure for a track.
func Segmentation(mediaID string, cause error) *Error {
	return &Error{Code: CodeSegmentation, Message: "segmentation failed", MediaID: mediaID, cause: cause}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// UserCode returns the operator-facing code for err.
func UserCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UserCode()
	}
	return string(CodeInternal)
}
