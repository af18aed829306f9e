package sigma

import "github.com/rs/zerolog"

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithCatalog sets the catalog used to encode and decode fields and tags.
func WithCatalog(catalog *Catalog) CodecOption {
	return func(c *Codec) {
		if catalog != nil {
			c.catalog = catalog
		}
	}
}

// WithTagLengthMode selects BCD or binary tag lengths.
func WithTagLengthMode(mode TagLengthMode) CodecOption {
	return func(c *Codec) {
		c.tagMode = mode
	}
}

// WithMaxBodyLength caps the encoded body size. Values outside
// (MinBodyLength, DefaultMaxFrame] are ignored.
func WithMaxBodyLength(n int) CodecOption {
	return func(c *Codec) {
		if n >= MinBodyLength && n <= DefaultMaxFrame {
			c.maxBody = n
		}
	}
}

// WithLogger sets the codec logger.
func WithLogger(logger zerolog.Logger) CodecOption {
	return func(c *Codec) {
		c.logger = logger
	}
}

// WithValidator runs content rules on every decoded and encoded message.
func WithValidator(v *Validator) CodecOption {
	return func(c *Codec) {
		c.validator = v
	}
}

// WithStrictValidation validates content against the codec's catalog.
func WithStrictValidation() CodecOption {
	return func(c *Codec) {
		c.validator = nil
		c.strict = true
	}
}

// WithMetrics records codec counters in the default prometheus registry.
func WithMetrics() CodecOption {
	return func(c *Codec) {
		c.metrics = true
	}
}

// FrameOption configures a FrameDecoder.
type FrameOption func(*FrameDecoder)

// WithMaxFrameLength caps the declared body length a decoder accepts.
func WithMaxFrameLength(n int) FrameOption {
	return func(d *FrameDecoder) {
		if n >= MinBodyLength && n <= DefaultMaxFrame {
			d.maxLength = n
		}
	}
}

// WithPrefix makes the decoder emit frames with their length prefix.
func WithPrefix() FrameOption {
	return func(d *FrameDecoder) {
		d.withPrefix = true
	}
}

// WithFrameLogger sets the frame decoder logger.
func WithFrameLogger(logger zerolog.Logger) FrameOption {
	return func(d *FrameDecoder) {
		d.logger = logger
	}
}

// WithFrameMetrics counts frames in the default prometheus registry.
func WithFrameMetrics() FrameOption {
	return func(d *FrameDecoder) {
		d.metrics = true
	}
}
