package sigma

import "fmt"

// Builder constructs a Message fluently. The first error is kept and
// returned by Build; later calls become no-ops.
type Builder struct {
	msg *Message
	err error
}

func NewBuilder(opts ...MessageOption) *Builder {
	return &Builder{msg: NewMessage(opts...)}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) MTI(mti string) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.msg.SetMTI(mti); err != nil {
		return b.fail(err)
	}
	return b
}

func (b *Builder) Field(id int, value any) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.msg.SetField(id, value); err != nil {
		return b.fail(err)
	}
	return b
}

func (b *Builder) Tag(id TagID, value any) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.msg.SetTag(id, value); err != nil {
		return b.fail(err)
	}
	return b
}

// Serno accepts anything NormalizeSerno or ParseSerno would: a Serno,
// a digit string or an integer.
func (b *Builder) Serno(v any) *Builder {
	if b.err != nil {
		return b
	}
	s, err := sernoValue(v)
	if err != nil {
		return b.fail(err)
	}
	return b.Field(FieldSerno, s)
}

// GenerateSerno sets a random serial number.
func (b *Builder) GenerateSerno() *Builder {
	return b.Serno(nil)
}

func (b *Builder) SAF(flag string) *Builder {
	return b.Field(FieldSAF, flag)
}

func (b *Builder) Source(src string) *Builder {
	return b.Field(FieldSource, src)
}

func (b *Builder) PAN(pan string) *Builder {
	return b.Field(FieldPAN, pan)
}

func (b *Builder) ProcessingCode(code string) *Builder {
	return b.Field(FieldProcessingCode, code)
}

func (b *Builder) Amount(amount int64) *Builder {
	return b.Field(FieldAmount, amount)
}

// Subfield adds one sub-tag to a structured ISO field, creating the
// field when absent. name is a registered sub-tag name or a tag key.
func (b *Builder) Subfield(field int, name, value string) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.subtag(name)
	if err != nil {
		return b.fail(&FieldError{Field: field, Err: err})
	}
	subs, err := b.msg.Subfields(field)
	if err != nil {
		subs = NewSubfields()
		if err := b.msg.SetField(field, subs); err != nil {
			return b.fail(err)
		}
	}
	if err := subs.Set(id, []byte(value)); err != nil {
		return b.fail(&FieldError{Field: field, Err: err})
	}
	return b
}

// TagSubfield is Subfield for a structured tag.
func (b *Builder) TagSubfield(tag TagID, name, value string) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.subtag(name)
	if err != nil {
		return b.fail(&TagError{Tag: tag, Err: err})
	}
	subs, err := b.msg.TagSubfields(tag)
	if err != nil {
		subs = NewSubfields()
		if err := b.msg.SetTag(tag, subs); err != nil {
			return b.fail(err)
		}
	}
	if err := subs.Set(id, []byte(value)); err != nil {
		return b.fail(&TagError{Tag: tag, Err: err})
	}
	return b
}

func (b *Builder) subtag(name string) (TagID, error) {
	if id, ok := b.msg.catalog.SubtagID(name); ok {
		return id, nil
	}
	id, err := ParseTagKey(name)
	if err != nil {
		return TagID{}, fmt.Errorf("%w: unknown subtag %q", ErrInvalidTag, name)
	}
	return id, nil
}

// Build returns the message or the first error recorded.
func (b *Builder) Build() (*Message, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.msg, nil
}

// MustBuild is Build that panics on error.
func (b *Builder) MustBuild() *Message {
	msg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return msg
}
