package sigma

import "fmt"

// Bitmap is the presence index of a message body: a 64-bit primary
// bitmap and, when bit 1 is set, a 64-bit secondary bitmap.
// Bit 1 is the continuation marker and never a data field.
type Bitmap struct {
	primary      [BitmapSize]byte
	secondary    [SecondaryBitmapSize]byte
	hasSecondary bool
}

func bitPosition(fieldNum int) (byteIndex int, mask byte) {
	n := (fieldNum - 1) % 64
	return n / 8, 1 << (7 - n%8) // bits run MSB first
}

// Set marks fieldNum (2-128) as present. Fields above 64 switch on
// the secondary bitmap and the continuation bit.
func (bm *Bitmap) Set(fieldNum int) error {
	if fieldNum < 2 || fieldNum > MaxFieldNumber {
		return &FieldError{Field: fieldNum, Err: ErrInvalidField}
	}

	byteIndex, mask := bitPosition(fieldNum)
	if fieldNum <= 64 {
		bm.primary[byteIndex] |= mask
		return nil
	}
	bm.hasSecondary = true
	bm.primary[0] |= 0x80
	bm.secondary[byteIndex] |= mask
	return nil
}

// IsSet reports whether the bit for fieldNum is set.
func (bm *Bitmap) IsSet(fieldNum int) bool {
	if fieldNum < 1 || fieldNum > MaxFieldNumber {
		return false
	}
	byteIndex, mask := bitPosition(fieldNum)
	if fieldNum <= 64 {
		return bm.primary[byteIndex]&mask != 0
	}
	if !bm.hasSecondary {
		return false
	}
	return bm.secondary[byteIndex]&mask != 0
}

// Clear removes fieldNum. Clearing the last secondary field also drops
// the continuation bit.
func (bm *Bitmap) Clear(fieldNum int) {
	if fieldNum < 2 || fieldNum > MaxFieldNumber {
		return
	}
	byteIndex, mask := bitPosition(fieldNum)
	if fieldNum <= 64 {
		bm.primary[byteIndex] &^= mask
		return
	}
	if !bm.hasSecondary {
		return
	}
	bm.secondary[byteIndex] &^= mask
	for _, b := range bm.secondary {
		if b != 0 {
			return
		}
	}
	bm.hasSecondary = false
	bm.primary[0] &^= 0x80
}

// Fields returns the set data field numbers in ascending order.
func (bm *Bitmap) Fields() []int {
	fields := make([]int, 0, 16)
	for fieldNum := 2; fieldNum <= 64; fieldNum++ {
		if bm.IsSet(fieldNum) {
			fields = append(fields, fieldNum)
		}
	}
	if bm.hasSecondary {
		for fieldNum := 65; fieldNum <= MaxFieldNumber; fieldNum++ {
			if bm.IsSet(fieldNum) {
				fields = append(fields, fieldNum)
			}
		}
	}
	return fields
}

// HasSecondary reports whether the continuation bit is set.
func (bm *Bitmap) HasSecondary() bool {
	return bm.hasSecondary
}

// Len is the wire size of the bitmap, 8 or 16 bytes.
func (bm *Bitmap) Len() int {
	if bm.hasSecondary {
		return BitmapSize + SecondaryBitmapSize
	}
	return BitmapSize
}

// Bytes returns the wire form of the bitmap.
func (bm *Bitmap) Bytes() []byte {
	out := make([]byte, 0, bm.Len())
	out = append(out, bm.primary[:]...)
	if bm.hasSecondary {
		out = append(out, bm.secondary[:]...)
	}
	return out
}

func (bm *Bitmap) String() string {
	return hexString(bm.Bytes())
}

// Reset clears all bits in both bitmaps.
func (bm *Bitmap) Reset() {
	*bm = Bitmap{}
}

// unpack reads a binary bitmap from data and returns the bytes consumed.
func (bm *Bitmap) unpack(data []byte) (int, error) {
	bm.Reset()
	if len(data) < BitmapSize {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedBuffer, BitmapSize, len(data))
	}
	copy(bm.primary[:], data[:BitmapSize])
	bm.hasSecondary = bm.primary[0]&0x80 != 0
	if !bm.hasSecondary {
		return BitmapSize, nil
	}
	if len(data) < BitmapSize+SecondaryBitmapSize {
		return 0, fmt.Errorf("%w: continuation bit set without secondary bitmap", ErrInconsistentBitmap)
	}
	copy(bm.secondary[:], data[BitmapSize:BitmapSize+SecondaryBitmapSize])
	if bm.secondary == [SecondaryBitmapSize]byte{} {
		return 0, fmt.Errorf("%w: continuation bit set with empty secondary bitmap", ErrInconsistentBitmap)
	}
	return BitmapSize + SecondaryBitmapSize, nil
}

// EncodeBitmap packs the given field ids into an 8-byte bitmap, or 16
// bytes when any id is above 64.
func EncodeBitmap(ids []int) ([]byte, error) {
	var bm Bitmap
	for _, id := range ids {
		if err := bm.Set(id); err != nil {
			return nil, err
		}
	}
	return bm.Bytes(), nil
}

// DecodeBitmap parses a bitmap at the start of data and returns the
// present ids in ascending order and the number of bytes consumed.
func DecodeBitmap(data []byte) ([]int, int, error) {
	var bm Bitmap
	n, err := bm.unpack(data)
	if err != nil {
		return nil, 0, err
	}
	return bm.Fields(), n, nil
}
