package sigma

const hexTableUpper = "0123456789ABCDEF"

// encodeHexUpper converts src to uppercase hex and writes it to dst.
func encodeHexUpper(dst, src []byte) {
	for i, v := range src {
		dst[i*2] = hexTableUpper[v>>4]
		dst[i*2+1] = hexTableUpper[v&0x0f]
	}
}

func hexString(src []byte) string {
	dst := make([]byte, len(src)*2)
	encodeHexUpper(dst, src)
	return string(dst)
}

// bcdLen is the number of packed bytes needed for n digits.
func bcdLen(digits int) int {
	return (digits + 1) / 2
}

// packBCD packs ASCII digits into dst, two per byte. An odd digit count
// gets a leading zero nibble. dst must hold bcdLen(len(digits)) bytes.
func packBCD(dst, digits []byte) error {
	n := len(digits)
	pad := n % 2
	for i := range dst[:bcdLen(n)] {
		dst[i] = 0
	}
	for i, d := range digits {
		if d < '0' || d > '9' {
			return ErrInvalidBcdDigit
		}
		pos := i + pad
		if pos%2 == 0 {
			dst[pos/2] |= (d - '0') << 4
		} else {
			dst[pos/2] |= d - '0'
		}
	}
	return nil
}

// unpackBCD expands packed bytes into the last `digits` decimal digits.
// A padding nibble, when present, must be zero.
func unpackBCD(src []byte, digits int) ([]byte, error) {
	if bcdLen(digits) != len(src) {
		return nil, ErrTruncatedBuffer
	}
	out := make([]byte, 0, digits)
	pad := digits % 2
	for i, b := range src {
		hi, lo := b>>4, b&0x0f
		if hi > 9 || lo > 9 {
			return nil, ErrInvalidBcdDigit
		}
		if i == 0 && pad == 1 {
			if hi != 0 {
				return nil, ErrInvalidBcdDigit
			}
		} else {
			out = append(out, '0'+hi)
		}
		out = append(out, '0'+lo)
	}
	return out, nil
}

// bcdUint reads packed BCD bytes as an unsigned number.
func bcdUint(src []byte) (uint32, error) {
	var n uint32
	for _, b := range src {
		hi, lo := b>>4, b&0x0f
		if hi > 9 || lo > 9 {
			return 0, ErrInvalidBcdDigit
		}
		n = n*100 + uint32(hi)*10 + uint32(lo)
	}
	return n, nil
}

// putBCDUint writes n as len(dst) packed BCD bytes, most significant first.
func putBCDUint(dst []byte, n uint32) {
	for i := len(dst) - 1; i >= 0; i-- {
		lo := n % 10
		n /= 10
		hi := n % 10
		n /= 10
		dst[i] = byte(hi<<4 | lo)
	}
}

// writeIntToASCII formats val into buf with fixed-width zero padding.
func writeIntToASCII(buf []byte, val, digits int) {
	for i := digits - 1; i >= 0; i-- {
		buf[i] = byte(val%10 + '0')
		val /= 10
	}
}

// parseASCIIToInt parses ASCII digits without allocating.
func parseASCIIToInt(b []byte) (int, bool) {
	n := 0
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + int(ch-'0')
	}
	return n, true
}

func isDigits(b []byte) bool {
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
