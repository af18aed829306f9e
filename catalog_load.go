package sigma

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// CatalogConfig is the serialized form of a catalog overlay. Entries are
// merged over the default catalog: same ids replace, new ids are added.
type CatalogConfig struct {
	Fields  []FieldConfig     `json:"fields" yaml:"fields"`
	Tags    []TagConfig       `json:"tags" yaml:"tags"`
	Subtags map[string]uint32 `json:"subtags" yaml:"subtags"`
}

// FieldConfig describes one ISO field in an overlay.
type FieldConfig struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Kind       string `json:"kind" yaml:"kind"`
	Encoding   string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Length     string `json:"length,omitempty" yaml:"length,omitempty"`
	MaxLength  int    `json:"max_length" yaml:"max_length"`
	Mandatory  bool   `json:"mandatory" yaml:"mandatory"`
	Structured bool   `json:"structured" yaml:"structured"`
}

// TagConfig describes one tag in an overlay.
type TagConfig struct {
	ID          uint32 `json:"id" yaml:"id"`
	Extended    bool   `json:"extended,omitempty" yaml:"extended,omitempty"`
	Name        string `json:"name" yaml:"name"`
	FixedLength int    `json:"fixed_length,omitempty" yaml:"fixed_length,omitempty"`
	Structured  bool   `json:"structured" yaml:"structured"`
}

// LoadCatalogYAML builds a catalog from a YAML overlay.
func LoadCatalogYAML(data []byte) (*Catalog, error) {
	var cfg CatalogConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}
	return BuildCatalog(cfg)
}

// LoadCatalogJSON builds a catalog from a JSON overlay.
func LoadCatalogJSON(data []byte) (*Catalog, error) {
	var cfg CatalogConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse catalog json: %w", err)
	}
	return BuildCatalog(cfg)
}

// BuildCatalog merges cfg over the default catalog and returns a new,
// independent catalog. The default catalog is left untouched.
func BuildCatalog(cfg CatalogConfig) (*Catalog, error) {
	base := DefaultCatalog()

	fields := base.Fields()
	index := make(map[int]int, len(fields))
	for i, fd := range fields {
		index[fd.ID] = i
	}
	for _, fc := range cfg.Fields {
		fd, err := fc.descriptor()
		if err != nil {
			return nil, err
		}
		if i, ok := index[fd.ID]; ok {
			fields[i] = fd
			continue
		}
		index[fd.ID] = len(fields)
		fields = append(fields, fd)
	}

	tags := base.Tags()
	tagIndex := make(map[TagID]int, len(tags))
	for i, td := range tags {
		tagIndex[td.ID] = i
	}
	for _, tc := range cfg.Tags {
		td, err := tc.descriptor()
		if err != nil {
			return nil, err
		}
		if i, ok := tagIndex[td.ID]; ok {
			tags[i] = td
			continue
		}
		tagIndex[td.ID] = len(tags)
		tags = append(tags, td)
	}

	subtags := base.subtagMap()
	for name, num := range cfg.Subtags {
		id := NewTagID(num)
		if err := id.Validate(); err != nil {
			return nil, fmt.Errorf("subtag %s: %w", name, err)
		}
		subtags[name] = id
	}

	return newCatalog(fields, tags, subtags), nil
}

func (fc FieldConfig) descriptor() (FieldDescriptor, error) {
	if fc.ID < 2 || fc.ID > MaxFieldNumber {
		return FieldDescriptor{}, &FieldError{Field: fc.ID, Err: ErrInvalidField}
	}
	kind, err := parseFieldKind(fc.Kind)
	if err != nil {
		return FieldDescriptor{}, &FieldError{Field: fc.ID, Err: err}
	}
	enc, err := parseEncoding(fc.Encoding)
	if err != nil {
		return FieldDescriptor{}, &FieldError{Field: fc.ID, Err: err}
	}
	mode, err := parseLengthMode(fc.Length)
	if err != nil {
		return FieldDescriptor{}, &FieldError{Field: fc.ID, Err: err}
	}
	if enc == EncodingBCD && kind != KindNumeric {
		return FieldDescriptor{}, &FieldError{Field: fc.ID, Err: fmt.Errorf("bcd encoding requires numeric kind")}
	}
	if fc.MaxLength <= 0 {
		return FieldDescriptor{}, &FieldError{Field: fc.ID, Err: fmt.Errorf("max_length must be positive")}
	}
	if p := mode.PrefixDigits(); p > 0 && fc.MaxLength > maxForDigits(p) {
		return FieldDescriptor{}, &FieldError{Field: fc.ID, Err: fmt.Errorf("max_length %d exceeds %s prefix", fc.MaxLength, mode)}
	}
	return FieldDescriptor{
		ID:         fc.ID,
		Name:       fc.Name,
		Kind:       kind,
		Encoding:   enc,
		Length:     mode,
		MaxLength:  fc.MaxLength,
		Mandatory:  fc.Mandatory,
		Structured: fc.Structured,
	}, nil
}

func (tc TagConfig) descriptor() (TagDescriptor, error) {
	id := NewTagID(tc.ID)
	if tc.Extended {
		id = ExtendedTag(tc.ID)
	}
	if err := id.Validate(); err != nil {
		return TagDescriptor{}, err
	}
	if tc.FixedLength < 0 {
		return TagDescriptor{}, &TagError{Tag: id, Err: fmt.Errorf("negative fixed_length")}
	}
	return TagDescriptor{
		ID:          id,
		Name:        tc.Name,
		FixedLength: tc.FixedLength,
		Structured:  tc.Structured,
	}, nil
}

func maxForDigits(digits int) int {
	n := 1
	for i := 0; i < digits; i++ {
		n *= 10
	}
	return n - 1
}
