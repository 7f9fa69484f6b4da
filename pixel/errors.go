package pixel

import (
	"errors"
	"fmt"
)

// Error kinds shared by every codec, layout transform and palette operation.
// Decoders return them wrapped in an *Error so callers can recover the
// offending field with errors.As while still matching the kind with errors.Is.
var (
	ErrInvalidDimension   = errors.New("pixel: invalid dimension")
	ErrTruncatedInput     = errors.New("pixel: truncated input")
	ErrUnsupportedVariant = errors.New("pixel: unsupported variant")
	ErrMissingPalette     = errors.New("pixel: missing palette")
	ErrMalformedBlock     = errors.New("pixel: malformed block")
)

// Error describes a decode failure together with the field that caused it.
type Error struct {
	Kind  error  // one of the Err* kinds above
	Op    string // operation, e.g. "bc7" or "dds"
	Field string // offending field name, may be empty
	Value int64  // offending field value
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s=%d", e.Op, e.Kind, e.Field, e.Value)
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, op, field string, value int64) error {
	return &Error{Kind: kind, Op: op, Field: field, Value: value}
}

// Unsupported reports a recognized family with an unhandled sub-mode.
func Unsupported(op, field string, value int64) error {
	return Errorf(ErrUnsupportedVariant, op, field, value)
}

// Truncated reports that need bytes were required but only have remain.
func Truncated(op string, need, have int) error {
	return &Error{Kind: ErrTruncatedInput, Op: op, Field: fmt.Sprintf("need %d, have", need), Value: int64(have)}
}
