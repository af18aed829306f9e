package sigma

import (
	"fmt"

	"github.com/rs/zerolog"
)

// MarshalZerologObject writes the message as a structured log object.
// The PAN is masked and binary values are hex encoded.
func (m *Message) MarshalZerologObject(e *zerolog.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e.Str("mti", string(m.mti[:]))
	bm := m.bitmap()
	e.Str("bitmap", bm.String())

	fields := zerolog.Dict()
	for _, id := range m.presentFields() {
		fields.Str(fieldKey(id), logValue(id, m.fields[id]))
	}
	e.Dict("fields", fields)

	if len(m.tags) > 0 {
		tags := zerolog.Dict()
		for _, t := range m.sortedTags() {
			tags.Str(t.ID.String(), printable(t.Bytes()))
		}
		e.Dict("tags", tags)
	}
	if len(m.warnings) > 0 {
		e.Int("warnings", len(m.warnings))
	}
}

func logValue(id int, f *IsoField) string {
	switch {
	case id == FieldPAN:
		return maskPAN(f.String())
	case f.Kind == KindBinary || f.Kind == KindUnknown:
		return hexString(f.Bytes())
	}
	return printable(f.Bytes())
}

// maskPAN keeps the first six and last four digits.
func maskPAN(pan string) string {
	if len(pan) <= 10 {
		return "****"
	}
	masked := []byte(pan)
	for i := 6; i < len(masked)-4; i++ {
		masked[i] = '*'
	}
	return string(masked)
}

func printable(b []byte) string {
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7E {
			return hexString(b)
		}
	}
	return string(b)
}

func fieldKey(id int) string {
	return fmt.Sprintf("i%03d", id)
}
