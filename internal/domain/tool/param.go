package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ParamType is the closed set of parameter types a tool schema can declare.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
)

// ErrInvalidParamSpec is returned when a parameter declaration combines
// fields that are illegal for its type.
var ErrInvalidParamSpec = errors.New("invalid parameter spec")

// ParamSpec describes a single tool parameter. Build one with NewParam so the
// type-specific constraints below are enforced:
//   - enum is only allowed on string and number parameters, and every member
//     must match the parameter type
//   - default must match the parameter type and, when enum is set, be a member
//   - format is an advisory hint and only allowed on strings
type ParamSpec struct {
	Type     ParamType
	Required bool
	Default  any
	Enum     []any
	Format   string
}

// ParamOption customises a ParamSpec during construction.
type ParamOption func(*ParamSpec)

// Required marks the parameter as mandatory.
func Required() ParamOption {
	return func(p *ParamSpec) { p.Required = true }
}

// WithDefault sets the documented default value.
func WithDefault(v any) ParamOption {
	return func(p *ParamSpec) { p.Default = v }
}

// WithEnum restricts the parameter to a closed set of values.
func WithEnum(values ...any) ParamOption {
	return func(p *ParamSpec) { p.Enum = append([]any(nil), values...) }
}

// WithFormat attaches an advisory format hint such as "date" or "datetime".
func WithFormat(format string) ParamOption {
	return func(p *ParamSpec) { p.Format = format }
}

// NewParam builds a ParamSpec of type t and checks it.
func NewParam(t ParamType, opts ...ParamOption) (ParamSpec, error) {
	p := ParamSpec{Type: t}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.check(); err != nil {
		return ParamSpec{}, err
	}
	return p, nil
}

// NewStringParam builds a string parameter.
func NewStringParam(opts ...ParamOption) (ParamSpec, error) { return NewParam(ParamString, opts...) }

// NewNumberParam builds a number parameter.
func NewNumberParam(opts ...ParamOption) (ParamSpec, error) { return NewParam(ParamNumber, opts...) }

// NewBooleanParam builds a boolean parameter. Enum is rejected.
func NewBooleanParam(opts ...ParamOption) (ParamSpec, error) { return NewParam(ParamBoolean, opts...) }

// NewArrayParam builds an array parameter. Enum and format are rejected.
func NewArrayParam(opts ...ParamOption) (ParamSpec, error) { return NewParam(ParamArray, opts...) }

// MustParam is NewParam that panics on an illegal combination.
// Intended for statically known catalogs and tests.
func MustParam(t ParamType, opts ...ParamOption) ParamSpec {
	p, err := NewParam(t, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p ParamSpec) check() error {
	switch p.Type {
	case ParamString, ParamNumber, ParamBoolean, ParamArray:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidParamSpec, p.Type)
	}

	if len(p.Enum) > 0 {
		if p.Type != ParamString && p.Type != ParamNumber {
			return fmt.Errorf("%w: enum not allowed on %s", ErrInvalidParamSpec, p.Type)
		}
		for _, v := range p.Enum {
			if !p.Type.Matches(v) {
				return fmt.Errorf("%w: enum value %v is not a %s", ErrInvalidParamSpec, v, p.Type)
			}
		}
	}

	if p.Default != nil {
		if !p.Type.Matches(p.Default) {
			return fmt.Errorf("%w: default %v is not a %s", ErrInvalidParamSpec, p.Default, p.Type)
		}
		if len(p.Enum) > 0 && !p.allows(p.Default) {
			return fmt.Errorf("%w: default %v is not one of the enum values", ErrInvalidParamSpec, p.Default)
		}
	}

	if p.Format != "" && p.Type != ParamString {
		return fmt.Errorf("%w: format not allowed on %s", ErrInvalidParamSpec, p.Type)
	}
	return nil
}

// Matches reports whether v has the runtime shape of t.
func (t ParamType) Matches(v any) bool {
	switch t {
	case ParamString:
		_, ok := v.(string)
		return ok
	case ParamNumber:
		_, ok := toFloat(v)
		return ok
	case ParamBoolean:
		_, ok := v.(bool)
		return ok
	case ParamArray:
		if v == nil {
			return false
		}
		k := reflect.TypeOf(v).Kind()
		return k == reflect.Slice || k == reflect.Array
	}
	return false
}

// allows reports whether v is a member of the enum. Numbers compare by value
// so 20, int64(20) and json.Number("20") are the same member.
func (p ParamSpec) allows(v any) bool {
	for _, member := range p.Enum {
		if scalarEqual(member, v) {
			return true
		}
	}
	return false
}

func scalarEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

type paramSpecJSON struct {
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
	Default  any       `json:"default,omitempty"`
	Enum     []any     `json:"enum,omitempty"`
	Format   string    `json:"format,omitempty"`
}

// MarshalJSON renders the spec in the catalog wire shape.
func (p ParamSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(paramSpecJSON(p))
}

// Parameter is a named ParamSpec.
type Parameter struct {
	Name string
	Spec ParamSpec
}

// ParamSchema is a tool's parameters in declaration order.
type ParamSchema []Parameter

// Get returns the spec declared for name.
func (s ParamSchema) Get(name string) (ParamSpec, bool) {
	for _, p := range s {
		if p.Name == name {
			return p.Spec, true
		}
	}
	return ParamSpec{}, false
}

// MarshalJSON renders the schema as an object, keys in declaration order.
func (s ParamSchema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.Spec)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
