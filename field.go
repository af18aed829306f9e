package sigma

import (
	"fmt"
	"strconv"
	"sync"
)

// Body is the value of an ISO field or a tag. It is opaque bytes until
// Subfields is called on a structured body; the sub-TLV records are
// decoded then and cached. The cache is guarded by mu, so a decoded
// message can be read from several goroutines. The Subfields value
// itself must not be modified concurrently.
type Body struct {
	mu         sync.Mutex
	raw        []byte
	structured bool
	mode       TagLengthMode
	subs       *Subfields
	dirty      bool // subs changed after raw was produced
	err        error
}

// Bytes returns the wire value. For a structured body whose subfields
// were modified, the value is rebuilt from them first. If rebuilding
// fails the last good value is returned; use Value to see the error.
func (b *Body) Bytes() []byte {
	raw, _ := b.Value()
	return raw
}

// Value is Bytes with the error from rebuilding modified subfields.
func (b *Body) Value() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.syncLocked()
	return b.raw, err
}

// String returns the value as text.
func (b *Body) String() string {
	return string(b.Bytes())
}

// Len is the value length in bytes (digits for numeric values).
func (b *Body) Len() int {
	return len(b.Bytes())
}

// Structured reports whether the body carries sub-TLV records.
func (b *Body) Structured() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.structured
}

// Decoded reports whether the subfields have been expanded.
func (b *Body) Decoded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs != nil
}

// Subfields decodes the sub-TLV records of a structured body on first
// use and returns the cached mapping afterwards. Changes made through
// the returned value are written back on the next Bytes or encode.
func (b *Body) Subfields() (*Subfields, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subfieldsLocked()
}

func (b *Body) subfieldsLocked() (*Subfields, error) {
	if b.subs != nil {
		return b.subs, nil
	}
	if !b.structured {
		return nil, fmt.Errorf("%w: body is not structured", ErrInvalidValue)
	}
	subs, err := DecodeSubfields(b.raw, b.mode)
	if err != nil {
		return nil, err
	}
	subs.owner = b
	b.subs = subs
	return subs, nil
}

func (b *Body) setRaw(v []byte) {
	b.mu.Lock()
	b.raw = v
	b.subs = nil
	b.dirty = false
	b.err = nil
	b.mu.Unlock()
}

func (b *Body) setSubfields(s *Subfields) {
	b.mu.Lock()
	s.owner = b
	b.structured = true
	b.subs = s
	b.dirty = true
	b.mu.Unlock()
}

func (b *Body) markDirty() {
	b.mu.Lock()
	b.dirty = true
	b.mu.Unlock()
}

// syncLocked re-encodes modified subfields into raw.
func (b *Body) syncLocked() error {
	if !b.dirty || b.subs == nil {
		return b.err
	}
	raw, err := EncodeSubfields(b.subs, b.mode)
	if err != nil {
		b.err = err
		return err
	}
	b.raw = raw
	b.dirty = false
	b.err = nil
	return nil
}

// wire returns the value to put on the wire with sub-TLV lengths in
// mode. structured forces sub-TLV handling for a body set as plain
// bytes on a structured field.
func (b *Body) wire(mode TagLengthMode, structured bool) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if structured {
		b.structured = true
	}
	if !b.structured || b.mode == mode {
		err := b.syncLocked()
		return b.raw, err
	}
	if _, err := b.subfieldsLocked(); err != nil {
		return nil, err
	}
	b.mode = mode
	b.dirty = true
	err := b.syncLocked()
	return b.raw, err
}

func (b *Body) copyTo(c *Body) {
	raw := b.Bytes()
	b.mu.Lock()
	c.structured = b.structured
	c.mode = b.mode
	b.mu.Unlock()
	if raw != nil {
		c.raw = make([]byte, len(raw))
		copy(c.raw, raw)
	}
}

// IsoField is one bitmap-indexed field of a message. Numeric values
// hold ASCII digits regardless of their wire encoding.
type IsoField struct {
	ID     int
	Kind   FieldKind
	Length LengthMode
	Body
}

// Int64 parses a numeric value.
func (f *IsoField) Int64() (int64, error) {
	return strconv.ParseInt(f.String(), 10, 64)
}

// Unknown reports whether the field id is not in the catalog.
func (f *IsoField) Unknown() bool {
	return f.Kind == KindUnknown
}

func (f *IsoField) clone() *IsoField {
	c := &IsoField{ID: f.ID, Kind: f.Kind, Length: f.Length}
	f.copyTo(&c.Body)
	return c
}

// TagField is one proprietary tag record.
type TagField struct {
	ID TagID
	Body
}

func (t *TagField) clone() *TagField {
	c := &TagField{ID: t.ID}
	t.copyTo(&c.Body)
	return c
}

// formatIntToBytes converts an integer to ASCII, zero-padded on the left
// to width.
func formatIntToBytes(value int64, width int) []byte {
	s := strconv.FormatInt(value, 10)
	if len(s) >= width {
		return []byte(s)
	}
	out := make([]byte, width)
	pad := width - len(s)
	for i := 0; i < pad; i++ {
		out[i] = '0'
	}
	copy(out[pad:], s)
	return out
}
