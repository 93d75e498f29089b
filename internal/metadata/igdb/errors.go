package igdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for IGDB operations.
var (
	ErrNotFound     = errors.New("igdb: not found")
	ErrRateLimited  = errors.New("igdb: rate limited by server")
	ErrBadRequest   = errors.New("igdb: bad request")
	ErrUnauthorized = errors.New("igdb: token rejected")
	ErrServer       = errors.New("igdb: server error")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op       string // "search", "details", "companies", "token"
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("igdb %s [%s]: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("igdb %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, endpoint string, err error) error {
	return &Error{Op: op, Endpoint: endpoint, Err: err}
}
