package sigma

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeShortTag(t *testing.T) {
	got, err := EncodeTag(ShortTag(31), []byte("abc"), TagLengthBCD)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x31, 0x00, 0x03, 'a', 'b', 'c'}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X want % X", got, want)
	}
}

func TestEncodeExtendedTag(t *testing.T) {
	got, err := EncodeTag(NewTagID(12345), []byte("x"), TagLengthBCD)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0xF3, 0x01, 0x23, 0x45, 0x00, 0x01, 'x'}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X want % X", got, want)
	}

	tf, n, err := DecodeTag(got, 0, TagLengthBCD)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(got) || tf.ID != ExtendedTag(12345) || tf.String() != "x" {
		t.Fatalf("unexpected decode: id=%v n=%d value=%q", tf.ID, n, tf.String())
	}
}

func TestExtendedTagNeverConfusedWithShort(t *testing.T) {
	for _, n := range []uint32{5, 99, 100, 9999, 99999999} {
		ext := ExtendedTag(n)
		wire, err := EncodeTag(ext, []byte("v"), TagLengthBCD)
		if err != nil {
			t.Fatalf("encode %d: %v", n, err)
		}
		tf, _, err := DecodeTag(wire, 0, TagLengthBCD)
		if err != nil {
			t.Fatalf("decode %d: %v", n, err)
		}
		if tf.ID != ext {
			t.Fatalf("tag %d decoded as %+v", n, tf.ID)
		}
		if n <= 99 && tf.ID == ShortTag(uint8(n)) {
			t.Fatalf("extended tag %d collapsed into short form", n)
		}
	}

	short, _ := EncodeTag(ShortTag(5), []byte("v"), TagLengthBCD)
	ext, _ := EncodeTag(ExtendedTag(5), []byte("v"), TagLengthBCD)
	if bytes.Equal(short, ext) {
		t.Fatalf("short and extended forms share a wire encoding")
	}
}

func TestTagKeys(t *testing.T) {
	cases := map[string]TagID{
		"T0031": ShortTag(31),
		"T0100": ExtendedTag(100),
		"X0005": ExtendedTag(5),
	}
	for key, id := range cases {
		if id.String() != key {
			t.Fatalf("%+v rendered as %q, want %q", id, id.String(), key)
		}
		parsed, err := ParseTagKey(key)
		if err != nil {
			t.Fatalf("parse %q: %v", key, err)
		}
		if parsed != id {
			t.Fatalf("parse %q: got %+v want %+v", key, parsed, id)
		}
	}
	if _, err := ParseTagKey("Q12"); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
}

func TestTagOrdering(t *testing.T) {
	if !ShortTag(5).Less(ExtendedTag(5)) {
		t.Fatalf("short tag must sort before extended tag with the same number")
	}
	if !ExtendedTag(5).Less(ShortTag(6)) {
		t.Fatalf("tags must sort by number first")
	}
}

func TestTagValidateRange(t *testing.T) {
	if err := (TagID{Form: TagShort, Num: 100}).Validate(); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
	if err := ExtendedTag(100000000).Validate(); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("expected ErrInvalidTag, got %v", err)
	}
}

func TestTagBinaryLength(t *testing.T) {
	value := bytes.Repeat([]byte{'a'}, 300)
	got, err := EncodeTag(ShortTag(1), value, TagLengthBinary)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got[1] != 0x01 || got[2] != 0x2C {
		t.Fatalf("unexpected length bytes % X", got[1:3])
	}
	tf, _, err := DecodeTag(got, 0, TagLengthBinary)
	if err != nil || tf.Len() != 300 {
		t.Fatalf("decode: len=%d err=%v", tf.Len(), err)
	}
}

func TestTagLengthOverflow(t *testing.T) {
	_, err := EncodeTag(ShortTag(1), make([]byte, 10000), TagLengthBCD)
	if !errors.Is(err, ErrFieldLengthOverflow) {
		t.Fatalf("expected ErrFieldLengthOverflow, got %v", err)
	}
	var te *TagError
	if !errors.As(err, &te) || te.Tag != ShortTag(1) {
		t.Fatalf("expected TagError for tag 1, got %v", err)
	}
}

func TestDecodeTagTruncatedValue(t *testing.T) {
	_, _, err := DecodeTag([]byte{0x31, 0x00, 0x05, 'a'}, 0, TagLengthBCD)
	if !errors.Is(err, ErrTruncatedBuffer) {
		t.Fatalf("expected ErrTruncatedBuffer, got %v", err)
	}
	var te *TagError
	if !errors.As(err, &te) || te.Tag != ShortTag(31) {
		t.Fatalf("expected TagError for tag 31, got %v", err)
	}
}

func TestDecodeTagInvalidBCD(t *testing.T) {
	for _, wire := range [][]byte{
		{0x3A, 0x00, 0x01, 'a'},
		{0xF1, 0x0B, 0x00, 0x01, 'a'},
		{0xF0, 0x00, 0x01, 'a'},
		{0x31, 0x0A, 0x01, 'a'},
	} {
		if _, _, err := DecodeTag(wire, 0, TagLengthBCD); !errors.Is(err, ErrInvalidBcdDigit) {
			t.Fatalf("% X: expected ErrInvalidBcdDigit, got %v", wire, err)
		}
	}
}

func TestDecodeTagsConsumesBuffer(t *testing.T) {
	var buf []byte
	var err error
	buf, err = AppendTag(buf, ShortTag(0), []byte("02371492071643"), TagLengthBCD)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	buf, err = AppendTag(buf, ShortTag(11), []byte("2"), TagLengthBCD)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	tags, err := DecodeTags(buf, TagLengthBCD)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tags) != 2 || tags[0].ID != ShortTag(0) || tags[1].String() != "2" {
		t.Fatalf("unexpected tags: %+v", tags)
	}
}
