// Package form implements the settings collection carried by every brick.
//
// A Form is an ordered set of typed fields. Values are coerced to the field
// kind when set, then checked against go-playground/validator tag rules; an
// invalid value is kept (the user may still be typing) and reported by
// InvalidFields. Hidden fields are never reported invalid.
package form

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/go-playground/validator/v10"
)

// Kind is the value type of a field.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBoolean
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrUnknownField is returned when a value is set on a field the form does
// not declare.
var ErrUnknownField = errors.New("unknown field")

// Field declares one setting.
type Field struct {
	Name  string
	Label string
	Kind  Kind
	// Default is coerced like any other value; a nil default selects the
	// zero value of the kind (or the first element of an enum).
	Default any
	// Rules is a validator tag, e.g. "min=1,max=25".
	Rules string
	// Elements lists the allowed values of an enum field.
	Elements []string
	Hidden   bool
}

// Form holds field values. It is safe for concurrent use; observers are
// called without the form lock held.
type Form struct {
	mu        sync.Mutex
	fields    []*Field
	values    map[string]any
	observers []func(name string, value any)
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// New creates a form from field declarations. Field names must be unique
// and defaults must be coercible; violations are programming errors and
// panic.
func New(fields ...Field) *Form {
	f := &Form{values: make(map[string]any, len(fields))}
	for i := range fields {
		field := fields[i]
		if _, dup := f.values[field.Name]; dup {
			panic(fmt.Sprintf("form: duplicate field %q", field.Name))
		}
		field.Elements = slices.Clone(field.Elements)
		value := field.Default
		if value == nil {
			value = zero(&field)
		}
		coerced, err := coerce(&field, value)
		if err != nil {
			panic(fmt.Sprintf("form: default of field %q: %v", field.Name, err))
		}
		f.fields = append(f.fields, &field)
		f.values[field.Name] = coerced
	}
	return f
}

func zero(field *Field) any {
	switch field.Kind {
	case KindNumber:
		return 0
	case KindBoolean:
		return false
	case KindEnum:
		if len(field.Elements) > 0 {
			return field.Elements[0]
		}
	}
	return ""
}

// Fields returns a copy of the field declarations in order.
func (f *Form) Fields() []Field {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Field, len(f.fields))
	for i, field := range f.fields {
		out[i] = *field
		out[i].Elements = slices.Clone(field.Elements)
	}
	return out
}

// Value returns the current value of a field, or nil if it does not exist.
func (f *Form) Value(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// String returns a text or enum field value.
func (f *Form) String(name string) string {
	s, _ := f.Value(name).(string)
	return s
}

// Int returns a number field value.
func (f *Form) Int(name string) int {
	n, _ := f.Value(name).(int)
	return n
}

// Bool returns a boolean field value.
func (f *Form) Bool(name string) bool {
	b, _ := f.Value(name).(bool)
	return b
}

// SetValue coerces and stores a field value, then notifies observers if
// the value changed. A value that cannot be coerced to the field kind is
// rejected with an InvalidInputError; a value that merely breaks the
// field rules is stored and reported by InvalidFields.
func (f *Form) SetValue(name string, value any) error {
	f.mu.Lock()
	field := f.field(name)
	if field == nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	coerced, err := coerce(field, value)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	if f.values[name] == coerced {
		f.mu.Unlock()
		return nil
	}
	f.values[name] = coerced
	observers := slices.Clone(f.observers)
	f.mu.Unlock()

	for _, fn := range observers {
		fn(name, coerced)
	}
	return nil
}

// SetRules replaces the validator rules of a field.
func (f *Form) SetRules(name, rules string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if field := f.field(name); field != nil {
		field.Rules = rules
	}
}

// SetHidden shows or hides a field.
func (f *Form) SetHidden(name string, hidden bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if field := f.field(name); field != nil {
		field.Hidden = hidden
	}
}

// InvalidFields returns the names of visible fields whose value breaks
// their rules, in declaration order.
func (f *Form) InvalidFields() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var invalid []string
	for _, field := range f.fields {
		if field.Hidden {
			continue
		}
		if !valid(field, f.values[field.Name]) {
			invalid = append(invalid, field.Name)
		}
	}
	return invalid
}

// IsValid reports whether no visible field is invalid.
func (f *Form) IsValid() bool {
	return len(f.InvalidFields()) == 0
}

// SerializeValues returns all field values keyed by name.
func (f *Form) SerializeValues() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]any, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Extract applies serialized values in declaration order. Unknown keys are
// ignored so older documents keep loading; the first coercion failure
// aborts with the already applied values kept.
func (f *Form) Extract(values map[string]any) error {
	for _, field := range f.Fields() {
		v, ok := values[field.Name]
		if !ok {
			continue
		}
		if err := f.SetValue(field.Name, v); err != nil {
			return fmt.Errorf("setting %q: %w", field.Name, err)
		}
	}
	return nil
}

// OnChange registers an observer for value changes.
func (f *Form) OnChange(fn func(name string, value any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

func (f *Form) field(name string) *Field {
	for _, field := range f.fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

func valid(field *Field, value any) bool {
	if field.Kind == KindEnum {
		s, _ := value.(string)
		if !slices.Contains(field.Elements, s) {
			return false
		}
	}
	if field.Rules == "" {
		return true
	}
	return validate.Var(value, field.Rules) == nil
}

func coerce(field *Field, value any) (any, error) {
	switch field.Kind {
	case KindText, KindEnum:
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
	case KindNumber:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case uint64:
			return int(v), nil
		case float64:
			if v == math.Trunc(v) && !math.IsInf(v, 0) {
				return int(v), nil
			}
			return nil, chain.InvalidInput("field %q expects an integer, got %v", field.Name, v)
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, chain.InvalidInput("field %q expects an integer, got %q", field.Name, v)
			}
			return n, nil
		}
	case KindBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, chain.InvalidInput("field %q expects a boolean, got %q", field.Name, v)
			}
			return b, nil
		}
	}
	return nil, chain.InvalidInput("field %q of kind %s cannot hold %T", field.Name, field.Kind, value)
}
