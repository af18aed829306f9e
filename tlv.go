package sigma

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// TagForm is the wire representation of a tag id. The form is part of
// the tag's identity: ShortTag(5) and ExtendedTag(5) are different tags.
type TagForm uint8

const (
	TagShort    TagForm = iota // one packed BCD byte, 0-99
	TagExtended                // 0xF0|n discriminant then n packed BCD bytes
)

const (
	maxShortTag       = 99
	maxExtendedTag    = 99999999
	extendedTagMarker = 0xF0
	maxExtendedWidth  = 4
)

// TagID identifies a proprietary tag or sub-tag.
type TagID struct {
	Form TagForm
	Num  uint32
}

// ShortTag is a one-byte tag id, 0 to 99.
func ShortTag(n uint8) TagID {
	return TagID{Form: TagShort, Num: uint32(n)}
}

// ExtendedTag is a tag id written with the 0xF0 width marker, even when
// it would fit the short form.
func ExtendedTag(n uint32) TagID {
	return TagID{Form: TagExtended, Num: n}
}

// NewTagID returns the canonical id for n: short when it fits in one
// BCD byte, extended otherwise.
func NewTagID(n uint32) TagID {
	if n <= maxShortTag {
		return TagID{Form: TagShort, Num: n}
	}
	return TagID{Form: TagExtended, Num: n}
}

// Validate checks the number against the range of its form.
func (t TagID) Validate() error {
	switch t.Form {
	case TagShort:
		if t.Num > maxShortTag {
			return &TagError{Tag: t, Err: fmt.Errorf("%w: short tag above %d", ErrInvalidTag, maxShortTag)}
		}
	case TagExtended:
		if t.Num > maxExtendedTag {
			return &TagError{Tag: t, Err: fmt.Errorf("%w: extended tag above %d", ErrInvalidTag, maxExtendedTag)}
		}
	default:
		return &TagError{Tag: t, Err: ErrInvalidTag}
	}
	return nil
}

// Less orders tags by number; a short tag sorts before an extended tag
// with the same number.
func (t TagID) Less(o TagID) bool {
	if t.Num != o.Num {
		return t.Num < o.Num
	}
	return t.Form < o.Form
}

// Canonical reports whether t is the form NewTagID would pick.
func (t TagID) Canonical() bool {
	return t == NewTagID(t.Num)
}

// String renders the map key form: "T0031" for canonical ids and
// "X0005" for extended ids that would also fit the short form.
func (t TagID) String() string {
	prefix := "T"
	if !t.Canonical() {
		prefix = "X"
	}
	return fmt.Sprintf("%s%04d", prefix, t.Num)
}

// ParseTagKey is the inverse of TagID.String.
func ParseTagKey(key string) (TagID, error) {
	if len(key) < 2 || (key[0] != 'T' && key[0] != 'X') {
		return TagID{}, fmt.Errorf("%w: key %q", ErrInvalidTag, key)
	}
	n, err := strconv.ParseUint(key[1:], 10, 32)
	if err != nil {
		return TagID{}, fmt.Errorf("%w: key %q", ErrInvalidTag, key)
	}
	id := NewTagID(uint32(n))
	if key[0] == 'X' {
		id = ExtendedTag(uint32(n))
	}
	return id, id.Validate()
}

// wireLen is the number of bytes the id takes on the wire.
func (t TagID) wireLen() int {
	if t.Form == TagShort {
		return 1
	}
	return 1 + extendedWidth(t.Num)
}

func extendedWidth(n uint32) int {
	w := 1
	for n > 99 {
		n /= 100
		w++
	}
	return w
}

func appendTagID(dst []byte, t TagID) []byte {
	if t.Form == TagShort {
		var b [1]byte
		putBCDUint(b[:], t.Num)
		return append(dst, b[0])
	}
	w := extendedWidth(t.Num)
	var b [maxExtendedWidth]byte
	putBCDUint(b[:w], t.Num)
	dst = append(dst, extendedTagMarker|byte(w))
	return append(dst, b[:w]...)
}

// readTagID decodes a tag id at buf[0:] and returns the bytes consumed.
func readTagID(buf []byte) (TagID, int, error) {
	if len(buf) < 1 {
		return TagID{}, 0, fmt.Errorf("%w: missing tag id", ErrTruncatedBuffer)
	}
	first := buf[0]
	if first&0xF0 != extendedTagMarker {
		n, err := bcdUint(buf[:1])
		if err != nil {
			return TagID{}, 0, fmt.Errorf("%w: tag byte %02X", err, first)
		}
		return TagID{Form: TagShort, Num: n}, 1, nil
	}

	w := int(first & 0x0F)
	if w < 1 || w > maxExtendedWidth {
		return TagID{}, 0, fmt.Errorf("%w: extended tag width %d", ErrInvalidBcdDigit, w)
	}
	if len(buf) < 1+w {
		return TagID{}, 0, fmt.Errorf("%w: extended tag needs %d bytes, have %d", ErrTruncatedBuffer, 1+w, len(buf))
	}
	n, err := bcdUint(buf[1 : 1+w])
	if err != nil {
		return TagID{}, 0, fmt.Errorf("%w: extended tag % X", err, buf[1:1+w])
	}
	return TagID{Form: TagExtended, Num: n}, 1 + w, nil
}

func appendTagLength(dst []byte, n int, mode TagLengthMode) []byte {
	var b [tagLengthSize]byte
	if mode == TagLengthBinary {
		binary.BigEndian.PutUint16(b[:], uint16(n))
	} else {
		putBCDUint(b[:], uint32(n))
	}
	return append(dst, b[:]...)
}

func readTagLength(buf []byte, mode TagLengthMode) (int, error) {
	if len(buf) < tagLengthSize {
		return 0, fmt.Errorf("%w: tag length needs %d bytes, have %d", ErrTruncatedBuffer, tagLengthSize, len(buf))
	}
	if mode == TagLengthBinary {
		return int(binary.BigEndian.Uint16(buf[:tagLengthSize])), nil
	}
	n, err := bcdUint(buf[:tagLengthSize])
	if err != nil {
		return 0, fmt.Errorf("%w: tag length % X", err, buf[:tagLengthSize])
	}
	return int(n), nil
}

// AppendTag appends the wire form of one tag record to dst.
func AppendTag(dst []byte, id TagID, value []byte, mode TagLengthMode) ([]byte, error) {
	if err := id.Validate(); err != nil {
		return dst, err
	}
	if len(value) > mode.max() {
		return dst, &TagError{Tag: id, Err: fmt.Errorf("%w: value length %d exceeds %d", ErrFieldLengthOverflow, len(value), mode.max())}
	}
	dst = appendTagID(dst, id)
	dst = appendTagLength(dst, len(value), mode)
	return append(dst, value...), nil
}

// EncodeTag returns the wire form of one tag record.
func EncodeTag(id TagID, value []byte, mode TagLengthMode) ([]byte, error) {
	buf := make([]byte, 0, id.wireLen()+tagLengthSize+len(value))
	return AppendTag(buf, id, value, mode)
}

// DecodeTag decodes one tag record starting at offset. The returned
// field's value references buf. Structured values are not expanded.
func DecodeTag(buf []byte, offset int, mode TagLengthMode) (*TagField, int, error) {
	if offset < 0 || offset > len(buf) {
		return nil, 0, fmt.Errorf("%w: offset %d outside buffer of %d", ErrTruncatedBuffer, offset, len(buf))
	}
	data := buf[offset:]

	id, n, err := readTagID(data)
	if err != nil {
		return nil, 0, err
	}
	length, err := readTagLength(data[n:], mode)
	if err != nil {
		return nil, 0, &TagError{Tag: id, Err: err}
	}
	n += tagLengthSize
	if len(data)-n < length {
		return nil, 0, &TagError{Tag: id, Err: fmt.Errorf("%w: value needs %d bytes, have %d", ErrTruncatedBuffer, length, len(data)-n)}
	}

	tf := &TagField{ID: id}
	tf.raw = data[n : n+length]
	return tf, n + length, nil
}

// DecodeTags decodes consecutive tag records until buf is exhausted.
func DecodeTags(buf []byte, mode TagLengthMode) ([]*TagField, error) {
	tags := make([]*TagField, 0, 8)
	offset := 0
	for offset < len(buf) {
		tf, n, err := DecodeTag(buf, offset, mode)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tf)
		offset += n
	}
	return tags, nil
}
