package sigma

import (
	"fmt"
	"sort"
	"sync"
)

// Message is one Sigma message: MTI, bitmap-indexed ISO fields and
// proprietary tags. The bitmap is never stored; it is derived from the
// present field ids whenever it is needed.
type Message struct {
	mu       sync.RWMutex
	mti      [MTILength]byte
	catalog  *Catalog
	fields   [MaxFieldNumber + 1]*IsoField
	tags     map[TagID]*TagField
	warnings []error
}

// MessageOption configures a new Message.
type MessageOption func(*Message)

// WithMessageCatalog selects the catalog used to type values set on the
// message. The default catalog is used otherwise.
func WithMessageCatalog(c *Catalog) MessageOption {
	return func(m *Message) {
		if c != nil {
			m.catalog = c
		}
	}
}

// NewMessage returns an empty message bound to the default catalog.
func NewMessage(opts ...MessageOption) *Message {
	m := &Message{
		catalog: DefaultCatalog(),
		tags:    make(map[TagID]*TagField),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MTI returns the message type indicator, or "" when unset.
func (m *Message) MTI() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mti == [MTILength]byte{} {
		return ""
	}
	return string(m.mti[:])
}

// SetMTI sets the 4-digit message type indicator.
func (m *Message) SetMTI(mti string) error {
	if len(mti) != MTILength || !isDigits([]byte(mti)) {
		return fmt.Errorf("%w: %q", ErrInvalidMTI, mti)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.mti[:], mti)
	return nil
}

// SetField sets an ISO field. Accepted values are string, []byte,
// int, int64, uint64, Serno and *Subfields (structured fields only).
// Integers are zero-padded to the width of fixed numeric fields.
func (m *Message) SetField(id int, value any) error {
	if id < 2 || id > MaxFieldNumber {
		return &FieldError{Field: id, Err: ErrInvalidField}
	}
	fd, _ := m.catalog.descriptor(id)

	f := &IsoField{ID: id, Kind: fd.Kind, Length: fd.Length}
	f.structured = fd.Structured

	width := 0
	if fd.Length == LengthFixed {
		width = fd.MaxLength
	}

	switch v := value.(type) {
	case string:
		f.setRaw([]byte(v))
	case []byte:
		raw := make([]byte, len(v))
		copy(raw, v)
		f.setRaw(raw)
	case int:
		return m.SetField(id, int64(v))
	case int64:
		if v < 0 || fd.Kind != KindNumeric {
			return &FieldError{Field: id, Err: fmt.Errorf("%w: integer %d for %s field", ErrInvalidValue, v, fd.Kind)}
		}
		f.setRaw(formatIntToBytes(v, width))
	case uint64:
		if fd.Kind != KindNumeric {
			return &FieldError{Field: id, Err: fmt.Errorf("%w: integer for %s field", ErrInvalidValue, fd.Kind)}
		}
		raw := []byte(fmt.Sprintf("%0*d", width, v))
		f.setRaw(raw)
	case Serno:
		f.setRaw([]byte(v.String()))
	case *Subfields:
		if !fd.Structured || v == nil {
			return &FieldError{Field: id, Err: fmt.Errorf("%w: subfields for unstructured field", ErrInvalidValue)}
		}
		f.setSubfields(v)
	default:
		return &FieldError{Field: id, Err: fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, value)}
	}

	m.mu.Lock()
	m.fields[id] = f
	m.mu.Unlock()
	return nil
}

// Field returns a present ISO field.
func (m *Message) Field(id int) (*IsoField, bool) {
	if id < 2 || id > MaxFieldNumber {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f := m.fields[id]
	return f, f != nil
}

// GetString returns a field value as text.
func (m *Message) GetString(id int) (string, error) {
	b, err := m.GetBytes(id)
	return string(b), err
}

// GetBytes returns the field value. The slice is owned by the message.
// A structured value whose modified subfields cannot be re-encoded
// returns the encoding error.
func (m *Message) GetBytes(id int) ([]byte, error) {
	f, ok := m.Field(id)
	if !ok {
		return nil, &FieldError{Field: id, Err: ErrFieldNotFound}
	}
	b, err := f.Value()
	if err != nil {
		return nil, &FieldError{Field: id, Err: err}
	}
	return b, nil
}

// HasField reports whether field id is present.
func (m *Message) HasField(id int) bool {
	_, ok := m.Field(id)
	return ok
}

// ClearField removes field id.
func (m *Message) ClearField(id int) {
	if id < 2 || id > MaxFieldNumber {
		return
	}
	m.mu.Lock()
	m.fields[id] = nil
	m.mu.Unlock()
}

// PresentFields returns the present field ids in ascending order.
func (m *Message) PresentFields() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presentFields()
}

func (m *Message) presentFields() []int {
	ids := make([]int, 0, 16)
	for id := 2; id <= MaxFieldNumber; id++ {
		if m.fields[id] != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Bitmap derives the bitmap from the present fields.
func (m *Message) Bitmap() Bitmap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bitmap()
}

func (m *Message) bitmap() Bitmap {
	var bm Bitmap
	for _, id := range m.presentFields() {
		_ = bm.Set(id)
	}
	return bm
}

// Subfields returns the decoded content of a structured field.
func (m *Message) Subfields(id int) (*Subfields, error) {
	f, ok := m.Field(id)
	if !ok {
		return nil, &FieldError{Field: id, Err: ErrFieldNotFound}
	}
	subs, err := f.Subfields()
	if err != nil {
		return nil, &FieldError{Field: id, Err: err}
	}
	return subs, nil
}

// SetTag sets a proprietary tag. Accepted values are string, []byte and
// *Subfields (structured tags only).
func (m *Message) SetTag(id TagID, value any) error {
	if err := id.Validate(); err != nil {
		return err
	}
	td, _ := m.catalog.LookupTag(id)
	t := &TagField{ID: id}
	t.structured = td.Structured

	switch v := value.(type) {
	case string:
		t.setRaw([]byte(v))
	case []byte:
		raw := make([]byte, len(v))
		copy(raw, v)
		t.setRaw(raw)
	case *Subfields:
		if !td.Structured || v == nil {
			return &TagError{Tag: id, Err: fmt.Errorf("%w: subfields for unstructured tag", ErrInvalidValue)}
		}
		t.setSubfields(v)
	default:
		return &TagError{Tag: id, Err: fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, value)}
	}

	m.mu.Lock()
	m.tags[id] = t
	m.mu.Unlock()
	return nil
}

// Tag returns a present tag.
func (m *Message) Tag(id TagID) (*TagField, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tags[id]
	return t, ok
}

// ClearTag removes a tag.
func (m *Message) ClearTag(id TagID) {
	m.mu.Lock()
	delete(m.tags, id)
	m.mu.Unlock()
}

// Tags returns the tags ordered by number, short before extended.
func (m *Message) Tags() []*TagField {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedTags()
}

func (m *Message) sortedTags() []*TagField {
	out := make([]*TagField, 0, len(m.tags))
	for _, t := range m.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

// TagSubfields returns the decoded content of a structured tag.
func (m *Message) TagSubfields(id TagID) (*Subfields, error) {
	t, ok := m.Tag(id)
	if !ok {
		return nil, &TagError{Tag: id, Err: ErrFieldNotFound}
	}
	subs, err := t.Subfields()
	if err != nil {
		return nil, &TagError{Tag: id, Err: err}
	}
	return subs, nil
}

// SetSerno sets field 11.
func (m *Message) SetSerno(s Serno) error {
	return m.SetField(FieldSerno, s)
}

// Serno returns field 11 in canonical form.
func (m *Message) Serno() (Serno, error) {
	f, ok := m.Field(FieldSerno)
	if !ok {
		return Serno{}, &FieldError{Field: FieldSerno, Err: ErrMissingRequiredField}
	}
	return SernoFromWire(f.Bytes())
}

// SAF returns the store-and-forward flag (field 60).
func (m *Message) SAF() string {
	s, _ := m.GetString(FieldSAF)
	return s
}

// Source returns the message source indicator (field 61).
func (m *Message) Source() string {
	s, _ := m.GetString(FieldSource)
	return s
}

// Warnings lists non-fatal conditions recorded while decoding, such as
// uncatalogued field ids.
func (m *Message) Warnings() []error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]error, len(m.warnings))
	copy(out, m.warnings)
	return out
}

func (m *Message) addWarning(err error) {
	m.warnings = append(m.warnings, err)
}

// Catalog returns the catalog the message was built against.
func (m *Message) Catalog() *Catalog {
	return m.catalog
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := NewMessage(WithMessageCatalog(m.catalog))
	c.mti = m.mti
	for id, f := range m.fields {
		if f != nil {
			c.fields[id] = f.clone()
		}
	}
	for id, t := range m.tags {
		c.tags[id] = t.clone()
	}
	c.warnings = append(c.warnings, m.warnings...)
	return c
}

// CreateResponse clones the message, turns the request MTI into its
// response (0200 -> 0210) and sets the response code (field 39).
func (m *Message) CreateResponse(responseCode string) (*Message, error) {
	res := m.Clone()

	mti := res.MTI()
	if len(mti) != MTILength || (mti[2]-'0')%2 != 0 {
		return nil, fmt.Errorf("%w: cannot create response from %q", ErrInvalidMTI, mti)
	}
	b := []byte(mti)
	b[2]++
	if err := res.SetMTI(string(b)); err != nil {
		return nil, err
	}
	if err := res.SetField(39, responseCode); err != nil {
		return nil, err
	}
	res.warnings = nil
	return res, nil
}
