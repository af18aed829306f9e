package sigma

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// FrameState is the position of a FrameDecoder within the stream.
type FrameState int

const (
	AwaitingLength FrameState = iota
	AwaitingBody
	Failed
)

func (s FrameState) String() string {
	switch s {
	case AwaitingLength:
		return "awaiting_length"
	case AwaitingBody:
		return "awaiting_body"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("FrameState(%d)", int(s))
}

// FrameDecoder splits a byte stream into frames delimited by a 2-byte
// big-endian body length. It keeps per-connection state and must not
// be shared between goroutines.
type FrameDecoder struct {
	state   FrameState
	header  [FrameHeaderLength]byte
	headerN int
	body    []byte // preallocated to the declared size
	bodyN   int
	err     error

	maxLength  int
	withPrefix bool
	logger     zerolog.Logger
	metrics    bool
}

func NewFrameDecoder(opts ...FrameOption) *FrameDecoder {
	d := &FrameDecoder{
		maxLength: DefaultMaxFrame,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics {
		RegisterMetrics()
	}
	return d
}

// Feed consumes the next chunk of the stream and returns every frame it
// completes. Bytes past the end of a frame start the next one. Once a
// malformed length is seen the decoder stays failed until Reset; frames
// completed earlier in the same chunk are still returned.
func (d *FrameDecoder) Feed(p []byte) ([][]byte, error) {
	if d.state == Failed {
		return nil, fmt.Errorf("%w: %w", ErrDecoderFailed, d.err)
	}

	var frames [][]byte
	for len(p) > 0 {
		switch d.state {
		case AwaitingLength:
			n := copy(d.header[d.headerN:], p)
			d.headerN += n
			p = p[n:]
			if d.headerN < FrameHeaderLength {
				continue
			}
			length := int(binary.BigEndian.Uint16(d.header[:]))
			if length < MinBodyLength || length > d.maxLength {
				d.fail(fmt.Errorf("%w: declared %d, accepted %d to %d", ErrMalformedLength, length, MinBodyLength, d.maxLength))
				return frames, d.err
			}
			d.startBody(length)

		case AwaitingBody:
			n := copy(d.body[d.bodyN:], p)
			d.bodyN += n
			p = p[n:]
			if d.bodyN == len(d.body) {
				frames = append(frames, d.body)
				d.logger.Debug().Int("len", len(d.body)).Msg("frame complete")
				if d.metrics {
					recordFrame("ok")
				}
				d.clear()
			}
		}
	}
	return frames, nil
}

func (d *FrameDecoder) startBody(length int) {
	offset := 0
	if d.withPrefix {
		offset = FrameHeaderLength
	}
	d.body = make([]byte, offset+length)
	copy(d.body, d.header[:offset])
	d.bodyN = offset
	d.state = AwaitingBody
}

func (d *FrameDecoder) fail(err error) {
	d.clear()
	d.state = Failed
	d.err = err
	d.logger.Warn().Err(err).Msg("malformed frame length")
	if d.metrics {
		recordFrame("malformed")
	}
}

func (d *FrameDecoder) clear() {
	d.state = AwaitingLength
	d.headerN = 0
	d.body = nil
	d.bodyN = 0
}

// Close signals the end of the stream. It reports ErrIncompleteFrame
// when a partial frame is still buffered.
func (d *FrameDecoder) Close() error {
	if d.state == Failed {
		return d.err
	}
	if n := d.Buffered(); n > 0 {
		if d.metrics {
			recordFrame("incomplete")
		}
		return fmt.Errorf("%w: %d bytes buffered in state %s", ErrIncompleteFrame, n, d.state)
	}
	return nil
}

// Reset discards any partial frame and clears a failure.
func (d *FrameDecoder) Reset() {
	d.clear()
	d.err = nil
}

// Buffered is the number of stream bytes held for the frame in progress.
func (d *FrameDecoder) Buffered() int {
	switch d.state {
	case AwaitingLength:
		return d.headerN
	case AwaitingBody:
		n := d.bodyN
		if !d.withPrefix {
			n += FrameHeaderLength
		}
		return n
	}
	return 0
}

func (d *FrameDecoder) State() FrameState {
	return d.state
}

const readChunkSize = 4096

// ReadFrames reads r until EOF, passing each frame to fn. It stops at
// the first error from r, the decoder or fn, and checks ctx between
// reads. A stream that ends mid-frame yields ErrIncompleteFrame.
func ReadFrames(ctx context.Context, r io.Reader, fn func(frame []byte) error, opts ...FrameOption) error {
	d := NewFrameDecoder(opts...)
	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			frames, err := d.Feed(buf[:n])
			for _, f := range frames {
				if ferr := fn(f); ferr != nil {
					return ferr
				}
			}
			if err != nil {
				return err
			}
		}
		if errors.Is(rerr, io.EOF) {
			return d.Close()
		}
		if rerr != nil {
			return rerr
		}
	}
}
