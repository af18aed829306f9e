package sigma

import (
	"errors"
	"math/big"
	"testing"
)

func TestSernoStringAndNumberAgree(t *testing.T) {
	fromString, err := ParseSerno("6007040979")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fromNumber, err := NormalizeSerno(int64(6007040979))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if fromString != fromNumber {
		t.Fatalf("%s != %s", fromString, fromNumber)
	}
	if fromString.String() != "6007040979" || fromString.Uint64() != 6007040979 {
		t.Fatalf("unexpected serno %s", fromString)
	}
}

func TestSernoLeftPads(t *testing.T) {
	s, err := NormalizeSerno(uint8(42))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if s.String() != "0000000042" {
		t.Fatalf("unexpected padding %s", s)
	}
	p, err := ParseSerno(" 42 ")
	if err != nil || p != s {
		t.Fatalf("parse with spaces: %s err %v", p, err)
	}
}

// Values wider than ten digits keep their least-significant digits.
func TestSernoTruncationKeepsLowDigits(t *testing.T) {
	n, err := NormalizeSerno(uint64(123456789012))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if n.String() != "3456789012" {
		t.Fatalf("unexpected truncation %s", n)
	}
	p, err := ParseSerno("123456789012")
	if err != nil || p != n {
		t.Fatalf("parse truncation %s err %v", p, err)
	}

	big20 := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
	big20.Add(big20, big.NewInt(7))
	b, err := NormalizeSernoBig(big20)
	if err != nil || b.String() != "0000000007" {
		t.Fatalf("big truncation %s err %v", b, err)
	}
}

func TestSernoRejectsInvalid(t *testing.T) {
	if _, err := NormalizeSerno(-1); !errors.Is(err, ErrSernoFormat) {
		t.Fatalf("negative: expected ErrSernoFormat, got %v", err)
	}
	for _, s := range []string{"", "12a", "-5", "1.5"} {
		if _, err := ParseSerno(s); !errors.Is(err, ErrSernoFormat) {
			t.Fatalf("%q: expected ErrSernoFormat, got %v", s, err)
		}
	}
	if _, err := NormalizeSernoBig(big.NewInt(-3)); !errors.Is(err, ErrSernoFormat) {
		t.Fatalf("negative big: expected ErrSernoFormat, got %v", err)
	}
	if _, err := SernoFromWire([]byte("123")); !errors.Is(err, ErrSernoFormat) {
		t.Fatalf("short wire value: expected ErrSernoFormat, got %v", err)
	}
}

func TestGenerateSerno(t *testing.T) {
	for i := 0; i < 32; i++ {
		s, err := GenerateSerno()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if _, err := SernoFromWire([]byte(s.String())); err != nil {
			t.Fatalf("generated serno %q not canonical: %v", s, err)
		}
	}
}
