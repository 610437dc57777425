package datamodel

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindUint
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a tagged attribute value. Only the field matching Kind is
// meaningful. The zero Value is null.
//
// The integer CBOR keys keep persisted attribute records compact.
type Value struct {
	Kind  Kind    `cbor:"1,keyasint"`
	Bool  bool    `cbor:"2,keyasint,omitempty"`
	Uint  uint64  `cbor:"3,keyasint,omitempty"`
	Int   int64   `cbor:"4,keyasint,omitempty"`
	Float float64 `cbor:"5,keyasint,omitempty"`
	Text  string  `cbor:"6,keyasint,omitempty"`
	Bytes []byte  `cbor:"7,keyasint,omitempty"`
	List  []Value `cbor:"8,keyasint,omitempty"`
}

// NullValue returns a null value.
func NullValue() Value { return Value{} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// UintValue wraps an unsigned integer.
func UintValue(u uint64) Value { return Value{Kind: KindUint, Uint: u} }

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Text: s} }

// BytesValue wraps an octet string.
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }

// ListValue wraps a list of values.
func ListValue(items ...Value) Value {
	return Value{Kind: KindList, List: append([]Value(nil), items...)}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsBool returns the bool payload.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.Bool, nil
}

// AsUint returns the value as an unsigned integer. Non-negative signed
// integers are accepted since decoded config files do not distinguish them.
func (v Value) AsUint() (uint64, error) {
	switch v.Kind {
	case KindUint:
		return v.Uint, nil
	case KindInt:
		if v.Int >= 0 {
			return uint64(v.Int), nil
		}
	}
	return 0, v.mismatch(KindUint)
}

// AsInt returns the value as a signed integer.
func (v Value) AsInt() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.Int, nil
	case KindUint:
		if v.Uint <= 1<<63-1 {
			return int64(v.Uint), nil
		}
	}
	return 0, v.mismatch(KindInt)
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.Text, nil
}

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	return reflect.DeepEqual(v, o)
}

func (v Value) mismatch(want Kind) error {
	return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, v.Kind, want)
}

// String renders the value for logs and the CLI.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindUint:
		return fmt.Sprintf("%d", v.Uint)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return fmt.Sprintf("%q", v.Text)
	case KindBytes:
		return fmt.Sprintf("0x%x", v.Bytes)
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

// ValueOf converts a decoded configuration scalar (as produced by YAML or
// TOML decoders into an interface{}) to a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case []byte:
		return BytesValue(t), nil
	case float32:
		return FloatValue(float64(t)), nil
	case float64:
		return FloatValue(t), nil
	case int:
		return signed(int64(t)), nil
	case int8:
		return signed(int64(t)), nil
	case int16:
		return signed(int64(t)), nil
	case int32:
		return signed(int64(t)), nil
	case int64:
		return signed(t), nil
	case uint:
		return UintValue(uint64(t)), nil
	case uint8:
		return UintValue(uint64(t)), nil
	case uint16:
		return UintValue(uint64(t)), nil
	case uint32:
		return UintValue(uint64(t)), nil
	case uint64:
		return UintValue(t), nil
	case []any:
		var items []Value
		for i, e := range t {
			item, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("list item %d: %w", i, err)
			}
			items = append(items, item)
		}
		return Value{Kind: KindList, List: items}, nil
	default:
		return Value{}, fmt.Errorf("%w: cannot convert %T", ErrTypeMismatch, x)
	}
}

func signed(i int64) Value {
	if i >= 0 {
		return UintValue(uint64(i))
	}
	return IntValue(i)
}
