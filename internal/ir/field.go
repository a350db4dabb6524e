package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Field is a sealed interface over the values a Record may hold.
// Only String, Int, Bool, List and Object implement it.
// There is no float and no null: records must hash and compare identically
// on every node.
type Field interface {
	field() // Sealed
}

// String is a string field.
type String string

func (String) field() {}

// Int is an integer field. Always int64, never float64.
type Int int64

func (Int) field() {}

// Bool is a boolean field.
type Bool bool

func (Bool) field() {}

// List is an ordered list of fields.
type List []Field

func (List) field() {}

// Object maps names to fields. Use SortedKeys for deterministic iteration.
type Object map[string]Field

func (Object) field() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 orders strings by UTF-16 code units.
// Go's native string comparison is by UTF-8 bytes, which differs for
// characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// MarshalJSON writes the object with keys in RFC 8785 order.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// UnmarshalJSON decodes an object, rejecting floats and null.
func (obj *Object) UnmarshalJSON(data []byte) error {
	f, err := UnmarshalField(data)
	if err != nil {
		return err
	}
	o, ok := f.(Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", f)
	}
	*obj = o
	return nil
}

// UnmarshalField decodes JSON into a Field with strict validation.
// Floats and null are rejected.
func UnmarshalField(data []byte) (Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return ToField(raw)
}

// ToField converts a decoded JSON or YAML value into a Field.
// Accepts the types produced by encoding/json (with UseNumber) and
// gopkg.in/yaml.v3, plus Field values themselves.
func ToField(v any) (Field, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid field value")
	case Field:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not valid field values: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not valid field values: %v", val)
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			f, err := ToField(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = f
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			f, err := ToField(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = f
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported field type: %T", v)
	}
}

// fieldEqual compares two fields structurally.
func fieldEqual(a, b Field) bool {
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !fieldEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !fieldEqual(x, y) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}
