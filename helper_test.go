package sigma

import (
	"bytes"
	"errors"
	"testing"
)

func TestPackBCDOddDigitsGetLeadingZero(t *testing.T) {
	dst := make([]byte, bcdLen(3))
	if err := packBCD(dst, []byte("123")); err != nil {
		t.Fatalf("pack: %v", err)
	}
	if !bytes.Equal(dst, []byte{0x01, 0x23}) {
		t.Fatalf("unexpected packing: % X", dst)
	}
	out, err := unpackBCD(dst, 3)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if string(out) != "123" {
		t.Fatalf("unexpected digits: %q", out)
	}
}

func TestPackBCDRejectsNonDigit(t *testing.T) {
	dst := make([]byte, 1)
	if err := packBCD(dst, []byte("1a")); !errors.Is(err, ErrInvalidBcdDigit) {
		t.Fatalf("expected ErrInvalidBcdDigit, got %v", err)
	}
}

func TestUnpackBCDRejectsInvalidNibble(t *testing.T) {
	if _, err := unpackBCD([]byte{0x1A}, 2); !errors.Is(err, ErrInvalidBcdDigit) {
		t.Fatalf("expected ErrInvalidBcdDigit, got %v", err)
	}
	if _, err := unpackBCD([]byte{0x11, 0x23}, 3); !errors.Is(err, ErrInvalidBcdDigit) {
		t.Fatalf("non-zero pad nibble: expected ErrInvalidBcdDigit, got %v", err)
	}
}

func TestBCDUintRoundTrip(t *testing.T) {
	var b [2]byte
	putBCDUint(b[:], 1234)
	if b != [2]byte{0x12, 0x34} {
		t.Fatalf("unexpected packing: % X", b)
	}
	n, err := bcdUint(b[:])
	if err != nil || n != 1234 {
		t.Fatalf("unexpected value %d err %v", n, err)
	}
}
