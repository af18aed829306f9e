package sigma

import (
	"fmt"
	"regexp"
)

// ValidationRule checks the content of one field.
type ValidationRule interface {
	Validate(field *IsoField) error
	Name() string
}

// Validator holds content rules compiled from a catalog plus any rules
// added by the caller. It must not be modified once handed to a Codec.
type Validator struct {
	fieldRules  map[int][]ValidationRule
	globalRules []ValidationRule
}

// NewValidator derives length and charset rules from each catalog entry.
func NewValidator(catalog *Catalog) *Validator {
	v := &Validator{fieldRules: make(map[int][]ValidationRule)}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	for _, fd := range catalog.Fields() {
		rules := []ValidationRule{&LengthRule{MaxLength: fd.MaxLength}}
		if fd.Length == LengthFixed {
			rules[0] = &LengthRule{ExactLength: fd.MaxLength}
		}
		switch fd.Kind {
		case KindNumeric:
			rules = append(rules, &NumericRule{})
		case KindAlphanumeric:
			if !fd.Structured {
				rules = append(rules, &AlphanumericRule{AllowSpecialChars: true})
			}
		}
		v.fieldRules[fd.ID] = rules
	}
	return v
}

// AddRule attaches a rule to one field.
func (v *Validator) AddRule(field int, rule ValidationRule) *Validator {
	v.fieldRules[field] = append(v.fieldRules[field], rule)
	return v
}

// AddGlobalRule attaches a rule to every present field.
func (v *Validator) AddGlobalRule(rule ValidationRule) *Validator {
	v.globalRules = append(v.globalRules, rule)
	return v
}

// ValidateMessage runs all rules against the present fields in
// ascending order and returns the first failure.
func (v *Validator) ValidateMessage(m *Message) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return v.validateLocked(m)
}

func (v *Validator) validateLocked(m *Message) error {
	for _, id := range m.presentFields() {
		if err := v.ValidateField(m.fields[id]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateField runs the rules registered for f.ID and the global rules.
func (v *Validator) ValidateField(f *IsoField) error {
	for _, rules := range [][]ValidationRule{v.fieldRules[f.ID], v.globalRules} {
		for _, rule := range rules {
			if err := rule.Validate(f); err != nil {
				return &FieldError{Field: f.ID, Err: &ValidationError{
					Field:   f.ID,
					Rule:    rule.Name(),
					Message: err.Error(),
				}}
			}
		}
	}
	return nil
}

// LengthRule bounds the value length.
type LengthRule struct {
	MinLength   int
	MaxLength   int
	ExactLength int
}

func (r *LengthRule) Name() string { return "length" }

func (r *LengthRule) Validate(f *IsoField) error {
	length := f.Len()
	if r.ExactLength > 0 && length != r.ExactLength {
		return fmt.Errorf("expected length %d, got %d", r.ExactLength, length)
	}
	if r.MinLength > 0 && length < r.MinLength {
		return fmt.Errorf("length %d below minimum %d", length, r.MinLength)
	}
	if r.MaxLength > 0 && length > r.MaxLength {
		return fmt.Errorf("length %d exceeds maximum %d", length, r.MaxLength)
	}
	return nil
}

// NumericRule requires ASCII digits only.
type NumericRule struct {
	AllowEmpty bool
}

func (r *NumericRule) Name() string { return "numeric" }

func (r *NumericRule) Validate(f *IsoField) error {
	data := f.Bytes()
	if len(data) == 0 && !r.AllowEmpty {
		return fmt.Errorf("empty numeric value")
	}
	for i, b := range data {
		if b < '0' || b > '9' {
			return fmt.Errorf("non-numeric character at position %d", i)
		}
	}
	return nil
}

// AlphanumericRule accepts [0-9A-Za-z ], or any printable ASCII when
// AllowSpecialChars is set.
type AlphanumericRule struct {
	AllowSpecialChars bool
}

func (r *AlphanumericRule) Name() string { return "alphanumeric" }

func (r *AlphanumericRule) Validate(f *IsoField) error {
	for i, b := range f.Bytes() {
		if r.AllowSpecialChars {
			if b < 0x20 || b > 0x7E {
				return fmt.Errorf("non-printable character at position %d", i)
			}
			continue
		}
		if !((b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == ' ') {
			return fmt.Errorf("special character not allowed at position %d", i)
		}
	}
	return nil
}

// RegexRule matches the whole value against a pattern.
type RegexRule struct {
	Description string
	regex       *regexp.Regexp
}

// NewRegexRule compiles pattern up front so the rule is safe to share.
func NewRegexRule(pattern, description string) (*RegexRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexRule{Description: description, regex: re}, nil
}

func (r *RegexRule) Name() string { return "regex" }

func (r *RegexRule) Validate(f *IsoField) error {
	if !r.regex.MatchString(f.String()) {
		if r.Description != "" {
			return fmt.Errorf("%s", r.Description)
		}
		return fmt.Errorf("does not match pattern %s", r.regex)
	}
	return nil
}

// CustomRule wraps a validation function.
type CustomRule struct {
	RuleName     string
	ValidateFunc func(*IsoField) error
}

func (r *CustomRule) Name() string { return r.RuleName }

func (r *CustomRule) Validate(f *IsoField) error {
	return r.ValidateFunc(f)
}
