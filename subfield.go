package sigma

import (
	"fmt"
	"sort"
)

// Subfields is the decoded content of a structured body: sub-tag id to
// opaque value. Iteration is always in ascending sub-tag order.
type Subfields struct {
	items map[TagID][]byte
	owner *Body
}

// NewSubfields returns an empty set.
func NewSubfields() *Subfields {
	return &Subfields{items: make(map[TagID][]byte)}
}

// Get returns the value of a sub-tag.
func (s *Subfields) Get(id TagID) ([]byte, bool) {
	v, ok := s.items[id]
	return v, ok
}

// GetString returns the value of a sub-tag as text.
func (s *Subfields) GetString(id TagID) (string, bool) {
	v, ok := s.items[id]
	return string(v), ok
}

// Set stores a sub-tag value.
func (s *Subfields) Set(id TagID, value []byte) error {
	if err := id.Validate(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.items[id] = v
	s.touch()
	return nil
}

// Delete removes a sub-tag if present.
func (s *Subfields) Delete(id TagID) {
	if _, ok := s.items[id]; ok {
		delete(s.items, id)
		s.touch()
	}
}

// Len is the number of sub-tags.
func (s *Subfields) Len() int {
	return len(s.items)
}

// IDs returns the sub-tag ids in ascending order.
func (s *Subfields) IDs() []TagID {
	ids := make([]TagID, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

func (s *Subfields) touch() {
	if s.owner != nil {
		s.owner.markDirty()
	}
}

// DecodeSubfields expands the sub-TLV records of a structured value.
// The records must cover raw exactly; a trailing partial record is
// reported as ErrTruncatedBuffer.
func DecodeSubfields(raw []byte, mode TagLengthMode) (*Subfields, error) {
	subs := NewSubfields()
	offset := 0
	for offset < len(raw) {
		tf, n, err := DecodeTag(raw, offset, mode)
		if err != nil {
			return nil, fmt.Errorf("subfield at offset %d: %w", offset, err)
		}
		if _, dup := subs.items[tf.ID]; dup {
			return nil, &TagError{Tag: tf.ID, Err: fmt.Errorf("%w: duplicate subtag", ErrInvalidTag)}
		}
		v := make([]byte, len(tf.raw))
		copy(v, tf.raw)
		subs.items[tf.ID] = v
		offset += n
	}
	return subs, nil
}

// EncodeSubfields writes the sub-tags in ascending order.
func EncodeSubfields(s *Subfields, mode TagLengthMode) ([]byte, error) {
	out := make([]byte, 0, 64)
	var err error
	for _, id := range s.IDs() {
		out, err = AppendTag(out, id, s.items[id], mode)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
