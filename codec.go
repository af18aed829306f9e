package sigma

import (
	"encoding/binary"
	"fmt"

	"github.com/rs/zerolog"
)

// Codec assembles and disassembles message bodies against a catalog.
// A Codec is immutable after NewCodec and safe for concurrent use.
type Codec struct {
	catalog   *Catalog
	tagMode   TagLengthMode
	maxBody   int
	validator *Validator
	strict    bool
	logger    zerolog.Logger
	metrics   bool
}

// NewCodec returns a codec over the default catalog with BCD tag lengths
// unless options say otherwise.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		catalog: DefaultCatalog(),
		tagMode: TagLengthBCD,
		maxBody: DefaultMaxFrame,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.strict && c.validator == nil {
		c.validator = NewValidator(c.catalog)
	}
	if c.metrics {
		RegisterMetrics()
	}
	return c
}

var defaultCodec = NewCodec()

// Decode parses a body with the default codec.
func Decode(body []byte) (*Message, error) {
	return defaultCodec.Decode(body)
}

// Encode builds a length-prefixed frame with the default codec.
func Encode(m *Message) ([]byte, error) {
	return defaultCodec.Encode(m)
}

func (c *Codec) Catalog() *Catalog {
	return c.catalog
}

func (c *Codec) TagLengthMode() TagLengthMode {
	return c.tagMode
}

// NewMessage returns an empty message typed by the codec's catalog.
func (c *Codec) NewMessage() *Message {
	return NewMessage(WithMessageCatalog(c.catalog))
}

// Decode parses a frame body (no length prefix). Field and tag values
// reference body; the caller must not modify it afterwards.
func (c *Codec) Decode(body []byte) (*Message, error) {
	m, err := c.decode(body)
	if c.metrics {
		recordMessage(opDecode, err)
	}
	if err != nil {
		c.logger.Debug().Err(err).Int("body_len", len(body)).Msg("decode failed")
		return nil, err
	}
	if c.logger.GetLevel() <= zerolog.DebugLevel {
		c.logger.Debug().Object("message", m).Msg("message decoded")
	}
	return m, nil
}

// DecodeFrame strips the 2-byte length prefix and decodes the body.
func (c *Codec) DecodeFrame(frame []byte) (*Message, error) {
	if len(frame) < FrameHeaderLength {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrTruncatedBuffer, len(frame))
	}
	declared := int(binary.BigEndian.Uint16(frame))
	if declared != len(frame)-FrameHeaderLength {
		return nil, fmt.Errorf("%w: prefix says %d, body has %d", ErrMalformedLength, declared, len(frame)-FrameHeaderLength)
	}
	return c.Decode(frame[FrameHeaderLength:])
}

func (c *Codec) decode(body []byte) (*Message, error) {
	if len(body) < MTILength {
		return nil, fmt.Errorf("%w: body of %d bytes has no MTI", ErrTruncatedBuffer, len(body))
	}
	if !isDigits(body[:MTILength]) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMTI, body[:MTILength])
	}

	m := c.NewMessage()
	copy(m.mti[:], body[:MTILength])
	offset := MTILength

	var bm Bitmap
	n, err := bm.unpack(body[offset:])
	if err != nil {
		return nil, err
	}
	offset += n

	for _, id := range bm.Fields() {
		fd, known := c.catalog.descriptor(id)
		if !known {
			m.addWarning(&FieldError{Field: id, Err: ErrUnknownFieldID})
			c.logger.Warn().Int("field", id).Msg("uncatalogued field, kept opaque")
			if c.metrics {
				unknownFields.Inc()
			}
		}
		val, used, err := readFieldValue(fd, body[offset:])
		if err != nil {
			return nil, &FieldError{Field: id, Err: err}
		}
		f := &IsoField{ID: id, Kind: fd.Kind, Length: fd.Length}
		f.structured = fd.Structured
		f.mode = c.tagMode
		f.raw = val
		m.fields[id] = f
		offset += used
	}

	rest := body[offset:]
	for off := 0; off < len(rest); {
		tf, used, err := DecodeTag(rest, off, c.tagMode)
		if err != nil {
			return nil, err
		}
		if _, dup := m.tags[tf.ID]; dup {
			return nil, &TagError{Tag: tf.ID, Err: fmt.Errorf("%w: duplicate tag", ErrInvalidTag)}
		}
		td, _ := c.catalog.LookupTag(tf.ID)
		if td.FixedLength > 0 && len(tf.raw) != td.FixedLength {
			return nil, &TagError{Tag: tf.ID, Err: fmt.Errorf("%w: expected %d bytes, got %d", ErrFieldLengthMismatch, td.FixedLength, len(tf.raw))}
		}
		tf.structured = td.Structured
		tf.mode = c.tagMode
		m.tags[tf.ID] = tf
		off += used
	}

	if err := c.checkMandatory(m); err != nil {
		return nil, err
	}
	if c.validator != nil {
		if err := c.validator.ValidateMessage(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// readFieldValue reads one field at the start of data and returns its
// value (ASCII digits for numeric fields) and the bytes consumed.
func readFieldValue(fd FieldDescriptor, data []byte) ([]byte, int, error) {
	n, used := fd.MaxLength, 0
	if p := fd.Length.PrefixDigits(); p > 0 {
		if len(data) < p {
			return nil, 0, fmt.Errorf("%w: %s prefix needs %d bytes, have %d", ErrTruncatedBuffer, fd.Length, p, len(data))
		}
		v, ok := parseASCIIToInt(data[:p])
		if !ok {
			return nil, 0, fmt.Errorf("%w: non-numeric length prefix %q", ErrFieldLengthMismatch, data[:p])
		}
		if v > fd.MaxLength {
			return nil, 0, fmt.Errorf("%w: length %d exceeds %d", ErrFieldLengthOverflow, v, fd.MaxLength)
		}
		n, used = v, p
	}

	wire := n
	if fd.Encoding == EncodingBCD {
		wire = bcdLen(n)
	}
	if len(data)-used < wire {
		return nil, 0, fmt.Errorf("%w: value needs %d bytes, have %d", ErrTruncatedBuffer, wire, len(data)-used)
	}
	raw := data[used : used+wire]

	if fd.Encoding == EncodingBCD {
		digits, err := unpackBCD(raw, n)
		if err != nil {
			return nil, 0, err
		}
		return digits, used + wire, nil
	}
	if fd.Kind == KindNumeric && !isDigits(raw) {
		return nil, 0, fmt.Errorf("%w: non-numeric content", ErrInvalidValue)
	}
	return raw, used + wire, nil
}

func (c *Codec) checkMandatory(m *Message) error {
	for _, id := range c.catalog.Mandatory() {
		if m.fields[id] == nil {
			return &FieldError{Field: id, Err: ErrMissingRequiredField}
		}
	}
	return nil
}

// Encode builds the full frame: 2-byte big-endian body length, then
// the body.
func (c *Codec) Encode(m *Message) ([]byte, error) {
	scratch := acquireFrame()
	defer releaseFrame(scratch)

	buf, err := c.appendBody(*scratch, m)
	*scratch = buf
	if c.metrics {
		recordMessage(opEncode, err)
	}
	if err != nil {
		c.logger.Debug().Err(err).Msg("encode failed")
		return nil, err
	}
	binary.BigEndian.PutUint16(buf, uint16(len(buf)-FrameHeaderLength))

	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// EncodeBody builds the body without the length prefix.
func (c *Codec) EncodeBody(m *Message) ([]byte, error) {
	frame, err := c.Encode(m)
	if err != nil {
		return nil, err
	}
	return frame[FrameHeaderLength:], nil
}

func (c *Codec) appendBody(dst []byte, m *Message) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := len(dst)
	if !isDigits(m.mti[:]) {
		return dst, fmt.Errorf("%w: MTI not set", ErrInvalidMTI)
	}
	if err := c.checkMandatory(m); err != nil {
		return dst, err
	}
	if c.validator != nil {
		if err := c.validator.validateLocked(m); err != nil {
			return dst, err
		}
	}

	dst = append(dst, m.mti[:]...)
	bm := m.bitmap()
	dst = append(dst, bm.Bytes()...)

	for _, id := range bm.Fields() {
		f := m.fields[id]
		fd, _ := c.catalog.descriptor(id)
		raw, err := f.wire(c.tagMode, fd.Structured)
		if err != nil {
			return dst, &FieldError{Field: id, Err: err}
		}
		dst, err = appendFieldValue(dst, fd, raw)
		if err != nil {
			return dst, &FieldError{Field: id, Err: err}
		}
	}

	for _, t := range m.sortedTags() {
		raw, err := t.wire(c.tagMode, false)
		if err != nil {
			return dst, &TagError{Tag: t.ID, Err: err}
		}
		if td, ok := c.catalog.LookupTag(t.ID); ok && td.FixedLength > 0 && len(raw) != td.FixedLength {
			return dst, &TagError{Tag: t.ID, Err: fmt.Errorf("%w: expected %d bytes, got %d", ErrFieldLengthMismatch, td.FixedLength, len(raw))}
		}
		dst, err = AppendTag(dst, t.ID, raw, c.tagMode)
		if err != nil {
			return dst, err
		}
	}

	if size := len(dst) - start; size > c.maxBody || size > DefaultMaxFrame {
		return dst, fmt.Errorf("%w: body of %d bytes exceeds %d", ErrMalformedLength, size, c.maxBody)
	}
	return dst, nil
}

func appendFieldValue(dst []byte, fd FieldDescriptor, value []byte) ([]byte, error) {
	n := len(value)
	if fd.Length == LengthFixed {
		if n != fd.MaxLength {
			return dst, fmt.Errorf("%w: expected %d, got %d", ErrFieldLengthMismatch, fd.MaxLength, n)
		}
	} else if n > fd.MaxLength {
		return dst, fmt.Errorf("%w: length %d exceeds %d", ErrFieldLengthOverflow, n, fd.MaxLength)
	}
	if fd.Kind == KindNumeric && !isDigits(value) {
		return dst, fmt.Errorf("%w: non-numeric content", ErrInvalidValue)
	}

	if p := fd.Length.PrefixDigits(); p > 0 {
		var prefix [3]byte
		writeIntToASCII(prefix[:p], n, p)
		dst = append(dst, prefix[:p]...)
	}
	if fd.Encoding == EncodingBCD {
		size := bcdLen(n)
		dst = append(dst, make([]byte, size)...)
		if err := packBCD(dst[len(dst)-size:], value); err != nil {
			return dst, err
		}
		return dst, nil
	}
	return append(dst, value...), nil
}
