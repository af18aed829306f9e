package sigma

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// SernoWidth is the number of ASCII digits a serial number occupies on
// the wire (ISO field 11).
const SernoWidth = 10

var sernoModulus = big.NewInt(10_000_000_000)

// Serno is a canonical serial number: exactly SernoWidth ASCII digits.
// Two sernos compare equal with == when they denote the same number.
type Serno [SernoWidth]byte

// GenerateSerno returns a random serial number, uniform over
// [0, 10^10).
func GenerateSerno() (Serno, error) {
	n, err := rand.Int(rand.Reader, sernoModulus)
	if err != nil {
		return Serno{}, fmt.Errorf("failed to generate serno: %w", err)
	}
	return sernoFromUint(n.Uint64()), nil
}

// NormalizeSerno converts any integer to its canonical form. Values
// wider than SernoWidth digits keep their least-significant digits.
func NormalizeSerno[V constraints.Integer](v V) (Serno, error) {
	if v < 0 {
		return Serno{}, fmt.Errorf("%w: negative value %d", ErrSernoFormat, v)
	}
	return sernoFromUint(uint64(v) % 10_000_000_000), nil
}

// NormalizeSernoBig is NormalizeSerno for arbitrary precision values.
func NormalizeSernoBig(v *big.Int) (Serno, error) {
	if v == nil || v.Sign() < 0 {
		return Serno{}, fmt.Errorf("%w: negative or nil value", ErrSernoFormat)
	}
	var m big.Int
	m.Mod(v, sernoModulus)
	return sernoFromUint(m.Uint64()), nil
}

// ParseSerno accepts a decimal digit string of any length.
func ParseSerno(s string) (Serno, error) {
	s = strings.TrimSpace(s)
	if s == "" || !isDigits([]byte(s)) {
		return Serno{}, fmt.Errorf("%w: %q", ErrSernoFormat, s)
	}
	var out Serno
	for i := range out {
		out[i] = '0'
	}
	if len(s) > SernoWidth {
		s = s[len(s)-SernoWidth:]
	}
	copy(out[SernoWidth-len(s):], s)
	return out, nil
}

// SernoFromWire validates the exact field 11 value.
func SernoFromWire(b []byte) (Serno, error) {
	if len(b) != SernoWidth || !isDigits(b) {
		return Serno{}, fmt.Errorf("%w: wire value %q", ErrSernoFormat, b)
	}
	var out Serno
	copy(out[:], b)
	return out, nil
}

func sernoFromUint(n uint64) Serno {
	var out Serno
	for i := SernoWidth - 1; i >= 0; i-- {
		out[i] = byte('0' + n%10)
		n /= 10
	}
	return out
}

func (s Serno) String() string {
	return string(s[:])
}

func (s Serno) Uint64() uint64 {
	n, _ := strconv.ParseUint(s.String(), 10, 64)
	return n
}

// IsZero reports whether s was never set.
func (s Serno) IsZero() bool {
	return s == Serno{}
}
