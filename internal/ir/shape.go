package ir

import (
	"fmt"
	"strings"
)

// ShapeKind is the closed category of a relayed value.
type ShapeKind uint8

const (
	// ShapeNone carries no payload.
	ShapeNone ShapeKind = iota
	// ShapeEnum is an enumeration encoded as its integral discriminant.
	ShapeEnum
	// ShapeRecord is a value-record encoded field-wise.
	ShapeRecord
	// ShapeRef is a reference encoded by a caller-supplied codec.
	ShapeRef
	// ShapeScalar is a number encoded as a JSON integer.
	ShapeScalar
)

var shapeNames = [...]string{
	ShapeNone:   "none",
	ShapeEnum:   "enumeration",
	ShapeRecord: "value-record",
	ShapeRef:    "reference",
	ShapeScalar: "scalar",
}

const deferredPrefix = "deferred "

// Valid reports whether k is a defined shape kind.
func (k ShapeKind) Valid() bool {
	return int(k) < len(shapeNames)
}

// String returns the kind name.
func (k ShapeKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ShapeKind(%d)", uint8(k))
	}
	return shapeNames[k]
}

// Shape describes how a member's value is boxed, encoded and compared.
// Deferred marks the asynchronous variant of the same kind. Type names the
// declared enumeration, record or reference type and is empty for scalars
// and none.
type Shape struct {
	Kind     ShapeKind `json:"kind"`
	Type     string    `json:"type,omitempty"`
	Deferred bool      `json:"deferred,omitempty"`
}

// Sync returns the synchronous shape of kind k.
func Sync(k ShapeKind) Shape {
	return Shape{Kind: k}
}

// Deferred returns the asynchronous shape of kind k.
func Deferred(k ShapeKind) Shape {
	return Shape{Kind: k, Deferred: true}
}

// EnumOf returns the shape of the named enumeration.
func EnumOf(typeName string) Shape {
	return Shape{Kind: ShapeEnum, Type: typeName}
}

// RecordOf returns the shape of the named value-record.
func RecordOf(typeName string) Shape {
	return Shape{Kind: ShapeRecord, Type: typeName}
}

// RefOf returns the shape of the named reference type.
func RefOf(typeName string) Shape {
	return Shape{Kind: ShapeRef, Type: typeName}
}

// Async returns the deferred variant of s.
func (s Shape) Async() Shape {
	s.Deferred = true
	return s
}

// Now returns the synchronous variant of s.
func (s Shape) Now() Shape {
	s.Deferred = false
	return s
}

// Typed reports whether values of this kind carry a declared type name.
func (k ShapeKind) Typed() bool {
	return k == ShapeEnum || k == ShapeRecord || k == ShapeRef
}

// Valid reports whether the shape kind is defined.
func (s Shape) Valid() bool {
	return s.Kind.Valid()
}

// String renders "scalar", "deferred scalar" or "value-record Track".
func (s Shape) String() string {
	out := s.Kind.String()
	if s.Type != "" {
		out += " " + s.Type
	}
	if s.Deferred {
		return deferredPrefix + out
	}
	return out
}

// Accepts reports whether v conforms to the shape.
// A nil value is accepted only by ShapeNone.
func (s Shape) Accepts(v Value) bool {
	if v == nil {
		return s.Kind == ShapeNone
	}
	if v.Kind() != s.Kind {
		return false
	}
	if s.Type == "" {
		return true
	}
	return typeOf(v) == s.Type
}

func typeOf(v Value) string {
	switch tv := v.(type) {
	case Enum:
		return tv.Type
	case Record:
		return tv.Type
	case Ref:
		return tv.Type
	default:
		return ""
	}
}

// ParseShape parses "scalar", "deferred scalar", "value-record Track", etc.
// Kind names are matched case-insensitively; "record", "enum" and "ref"
// are accepted as short forms. Type names keep their case.
func ParseShape(s string) (Shape, error) {
	fields := strings.Fields(s)
	var shape Shape
	if len(fields) > 0 && strings.EqualFold(fields[0], strings.TrimSpace(deferredPrefix)) {
		shape.Deferred = true
		fields = fields[1:]
	}
	if len(fields) == 0 || len(fields) > 2 {
		return Shape{}, fmt.Errorf("unknown shape %q", s)
	}

	switch strings.ToLower(fields[0]) {
	case "none", "void":
		shape.Kind = ShapeNone
	case "enumeration", "enum":
		shape.Kind = ShapeEnum
	case "value-record", "record":
		shape.Kind = ShapeRecord
	case "reference", "ref":
		shape.Kind = ShapeRef
	case "scalar":
		shape.Kind = ShapeScalar
	default:
		return Shape{}, fmt.Errorf("unknown shape %q", s)
	}

	if len(fields) == 2 {
		if !shape.Kind.Typed() {
			return Shape{}, fmt.Errorf("shape %q: %s takes no type name", s, shape.Kind)
		}
		shape.Type = fields[1]
	}
	return shape, nil
}
