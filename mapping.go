package sigma

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Request keys that are not tags or ISO fields.
const (
	KeyMTI   = "MTI"
	KeySAF   = "SAF"
	KeySRC   = "SRC"
	KeySerno = "Serno"
)

// FromJSON builds a message from the JSON request form:
//
//	{"SAF": "Y", "SRC": "M", "MTI": "0200", "Serno": 6007040979,
//	 "T0000": "02371492071643", "i048": {"USRDT": "2595100250"}}
func FromJSON(data []byte) (*Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var req map[string]any
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return FromMap(req)
}

// FromMap builds a message from a generic request mapping using the
// default catalog. MTI, SAF and SRC are required strings. A missing
// Serno is generated. Tag keys have the form T0031 (or X0005 for an
// extended tag that would fit the short form) and ISO field keys the
// form i048; structured values may be given as nested mappings keyed by
// sub-tag name or tag key.
func FromMap(req map[string]any) (*Message, error) {
	return FromMapWithCatalog(req, DefaultCatalog())
}

func FromMapWithCatalog(req map[string]any, catalog *Catalog) (*Message, error) {
	m := NewMessage(WithMessageCatalog(catalog))

	mti, err := requiredString(req, KeyMTI)
	if err != nil {
		return nil, err
	}
	if err := m.SetMTI(mti); err != nil {
		return nil, err
	}
	saf, err := requiredString(req, KeySAF)
	if err != nil {
		return nil, err
	}
	src, err := requiredString(req, KeySRC)
	if err != nil {
		return nil, err
	}
	if err := m.SetField(FieldSAF, saf); err != nil {
		return nil, err
	}
	if err := m.SetField(FieldSource, src); err != nil {
		return nil, err
	}

	serno, err := sernoValue(req[KeySerno])
	if err != nil {
		return nil, err
	}
	if err := m.SetSerno(serno); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(req))
	for k := range req {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch k {
		case KeyMTI, KeySAF, KeySRC, KeySerno:
			continue
		}
		v := req[k]
		switch {
		case strings.HasPrefix(k, "T") || strings.HasPrefix(k, "X"):
			id, err := ParseTagKey(k)
			if err != nil {
				return nil, err
			}
			val, err := mapValue(catalog, v)
			if err != nil {
				return nil, &TagError{Tag: id, Err: err}
			}
			if err := m.SetTag(id, val); err != nil {
				return nil, err
			}
		case strings.HasPrefix(k, "i"):
			id, err := parseFieldKey(k)
			if err != nil {
				return nil, err
			}
			val, err := mapValue(catalog, v)
			if err != nil {
				return nil, &FieldError{Field: id, Err: err}
			}
			if err := m.SetField(id, val); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown request key %q", ErrInvalidField, k)
		}
	}
	return m, nil
}

// ToMap is the inverse of FromMap. Structured values that decode
// cleanly are returned as nested mappings keyed by sub-tag name when
// one is registered.
func (m *Message) ToMap() map[string]any {
	out := map[string]any{}
	if mti := m.MTI(); mti != "" {
		out[KeyMTI] = mti
	}
	for _, id := range m.PresentFields() {
		f, _ := m.Field(id)
		switch id {
		case FieldSerno:
			out[KeySerno] = f.String()
		case FieldSAF:
			out[KeySAF] = f.String()
		case FieldSource:
			out[KeySRC] = f.String()
		default:
			out[fieldKey(id)] = m.bodyValue(&f.Body)
		}
	}
	for _, t := range m.Tags() {
		out[t.ID.String()] = m.bodyValue(&t.Body)
	}
	return out
}

func (m *Message) bodyValue(b *Body) any {
	if !b.Structured() {
		return b.String()
	}
	subs, err := b.Subfields()
	if err != nil {
		return b.String()
	}
	out := make(map[string]any, subs.Len())
	for _, id := range subs.IDs() {
		key := id.String()
		if name, ok := m.catalog.SubtagName(id); ok {
			key = name
		}
		v, _ := subs.GetString(id)
		out[key] = v
	}
	return out
}

func requiredString(req map[string]any, key string) (string, error) {
	v, ok := req[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidValue, key, v)
	}
	return s, nil
}

func sernoValue(v any) (Serno, error) {
	switch n := v.(type) {
	case nil:
		return GenerateSerno()
	case string:
		return ParseSerno(n)
	case json.Number:
		return ParseSerno(n.String())
	case int:
		return NormalizeSerno(n)
	case int64:
		return NormalizeSerno(n)
	case uint64:
		return NormalizeSerno(n)
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= 1e19 {
			return Serno{}, fmt.Errorf("%w: %v", ErrSernoFormat, n)
		}
		return NormalizeSerno(uint64(n))
	case Serno:
		return n, nil
	}
	return Serno{}, fmt.Errorf("%w: Serno of type %T", ErrInvalidValue, v)
}

// mapValue converts a request value to something SetField/SetTag take.
func mapValue(catalog *Catalog, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return val, nil
	case map[string]any:
		subs := NewSubfields()
		for name, sv := range val {
			id, ok := catalog.SubtagID(name)
			if !ok {
				var err error
				if id, err = ParseTagKey(name); err != nil {
					return nil, fmt.Errorf("%w: unknown subtag %q", ErrInvalidTag, name)
				}
			}
			if _, dup := subs.Get(id); dup {
				return nil, fmt.Errorf("%w: subtag %s given twice", ErrInvalidTag, id)
			}
			s, ok := sv.(string)
			if !ok {
				return nil, fmt.Errorf("%w: subtag %s must be a string, got %T", ErrInvalidValue, name, sv)
			}
			if err := subs.Set(id, []byte(s)); err != nil {
				return nil, err
			}
		}
		return subs, nil
	case map[string]string:
		generic := make(map[string]any, len(val))
		for k, s := range val {
			generic[k] = s
		}
		return mapValue(catalog, generic)
	}
	return nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalidValue, v)
}

func parseFieldKey(key string) (int, error) {
	id, err := strconv.Atoi(key[1:])
	if err != nil || id < 2 || id > MaxFieldNumber {
		return 0, fmt.Errorf("%w: key %q", ErrInvalidField, key)
	}
	return id, nil
}
