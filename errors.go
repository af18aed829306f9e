package sigma

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedLength      = errors.New("malformed frame length")
	ErrIncompleteFrame      = errors.New("incomplete frame")
	ErrUnknownFieldID       = errors.New("unknown field id")
	ErrInvalidBcdDigit      = errors.New("invalid BCD digit")
	ErrTruncatedBuffer      = errors.New("truncated buffer")
	ErrFieldLengthMismatch  = errors.New("field length mismatch")
	ErrFieldLengthOverflow  = errors.New("field length overflow")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInconsistentBitmap   = errors.New("inconsistent bitmap")
	ErrSernoFormat          = errors.New("invalid serno format")

	ErrInvalidMTI    = errors.New("invalid MTI")
	ErrInvalidField  = errors.New("invalid field")
	ErrInvalidValue  = errors.New("invalid field value")
	ErrInvalidTag    = errors.New("invalid tag")
	ErrFieldNotFound = errors.New("field not found")
	ErrDecoderFailed = errors.New("frame decoder failed, reset required")
)

// FieldError scopes an error to one ISO field.
type FieldError struct {
	Field int
	Err   error
}

func (fe *FieldError) Error() string {
	return fmt.Sprintf("field %d: %v", fe.Field, fe.Err)
}

func (fe *FieldError) Unwrap() error {
	return fe.Err
}

// TagError scopes an error to one tag or sub-tag.
type TagError struct {
	Tag TagID
	Err error
}

func (te *TagError) Error() string {
	return fmt.Sprintf("tag %s: %v", te.Tag, te.Err)
}

func (te *TagError) Unwrap() error {
	return te.Err
}

// ValidationError reports a content rule failure. It matches
// ErrInvalidValue.
type ValidationError struct {
	Field   int
	Rule    string
	Message string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %d (%s): %s", ve.Field, ve.Rule, ve.Message)
}

func (ve *ValidationError) Unwrap() error {
	return ErrInvalidValue
}
