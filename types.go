package sigma

import (
	"fmt"
	"strings"
)

// FieldKind is the content class of an ISO field value.
type FieldKind int

const (
	KindAlphanumeric FieldKind = iota
	KindNumeric
	KindBinary
	KindUnknown
)

func (k FieldKind) String() string {
	switch k {
	case KindAlphanumeric:
		return "ans"
	case KindNumeric:
		return "n"
	case KindBinary:
		return "b"
	default:
		return "unknown"
	}
}

func parseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ans", "an", "a", "alphanumeric":
		return KindAlphanumeric, nil
	case "n", "numeric":
		return KindNumeric, nil
	case "b", "binary":
		return KindBinary, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Encoding is how a field value is laid out on the wire.
type Encoding int

const (
	EncodingASCII Encoding = iota
	EncodingBCD
	EncodingBinary
)

func (e Encoding) String() string {
	switch e {
	case EncodingBCD:
		return "bcd"
	case EncodingBinary:
		return "binary"
	default:
		return "ascii"
	}
}

func parseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii":
		return EncodingASCII, nil
	case "bcd":
		return EncodingBCD, nil
	case "binary", "b":
		return EncodingBinary, nil
	}
	return 0, fmt.Errorf("unknown encoding %q", s)
}

// LengthMode selects fixed width or an ASCII length prefix of 1-3 digits.
type LengthMode int

const (
	LengthFixed LengthMode = iota
	LengthLVAR
	LengthLLVAR
	LengthLLLVAR
)

// PrefixDigits is the width of the ASCII length prefix, 0 for fixed fields.
func (lm LengthMode) PrefixDigits() int {
	switch lm {
	case LengthLVAR:
		return 1
	case LengthLLVAR:
		return 2
	case LengthLLLVAR:
		return 3
	}
	return 0
}

func (lm LengthMode) String() string {
	switch lm {
	case LengthLVAR:
		return "LVAR"
	case LengthLLVAR:
		return "LLVAR"
	case LengthLLLVAR:
		return "LLLVAR"
	}
	return "FIXED"
}

func parseLengthMode(s string) (LengthMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FIXED":
		return LengthFixed, nil
	case "LVAR":
		return LengthLVAR, nil
	case "LLVAR":
		return LengthLLVAR, nil
	case "LLLVAR":
		return LengthLLLVAR, nil
	}
	return 0, fmt.Errorf("unknown length mode %q", s)
}

// TagLengthMode selects how a tag's value length is written.
type TagLengthMode int

const (
	TagLengthBCD    TagLengthMode = iota // 2 packed BCD bytes, max 9999
	TagLengthBinary                      // 2 bytes big endian, max 65535
)

func (m TagLengthMode) max() int {
	if m == TagLengthBinary {
		return 0xFFFF
	}
	return 9999
}

func parseTagLengthMode(s string) (TagLengthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bcd":
		return TagLengthBCD, nil
	case "binary":
		return TagLengthBinary, nil
	}
	return 0, fmt.Errorf("unknown tag length mode %q", s)
}

const (
	MTILength           = 4
	BitmapSize          = 8
	SecondaryBitmapSize = 8
	MaxFieldNumber      = 128
	FrameHeaderLength   = 2
	MinBodyLength       = MTILength + BitmapSize
	DefaultMaxFrame     = 0xFFFF
	tagLengthSize       = 2
)
