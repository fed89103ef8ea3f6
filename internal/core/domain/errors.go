package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGrantNotFound = errors.New("grant not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")
)

// MalformedGrantError is returned when a grant lacks grant_name or grant_description.
// Index is the position inside a batch, or -1 for a single grant.
type MalformedGrantError struct {
	Index   int
	Missing []string
}

func (e *MalformedGrantError) Error() string {
	fields := strings.Join(e.Missing, ", ")
	if e.Index >= 0 {
		return fmt.Sprintf("malformed grant at index %d: missing %s", e.Index, fields)
	}
	return fmt.Sprintf("malformed grant: missing %s", fields)
}

func (e *MalformedGrantError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// AsMalformedGrant extracts a MalformedGrantError from an error chain.
func AsMalformedGrant(err error) (*MalformedGrantError, bool) {
	var malformed *MalformedGrantError
	if errors.As(err, &malformed) {
		return malformed, true
	}
	return nil, false
}
