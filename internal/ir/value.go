package ir

import "reflect"

// Value is a sealed interface over the five relayable value variants.
// Only Void, Enum, Record, Ref and Scalar implement it.
type Value interface {
	// Kind returns the shape kind this variant belongs to.
	Kind() ShapeKind
	relayValue() // Sealed
}

// Void is the single value of ShapeNone.
type Void struct{}

func (Void) Kind() ShapeKind { return ShapeNone }
func (Void) relayValue()     {}

// Enum is an enumeration member identified by its discriminant.
type Enum struct {
	Type    string
	Ordinal int64
}

func (Enum) Kind() ShapeKind { return ShapeEnum }
func (Enum) relayValue()     {}

// Record is a value-record: a named tuple of constrained fields.
type Record struct {
	Type   string
	Fields Object
}

func (Record) Kind() ShapeKind { return ShapeRecord }
func (Record) relayValue()     {}

// Ref points at a domain object that cannot be encoded generically.
// Target should be a comparable value (usually a pointer) so identity
// equality is defined.
type Ref struct {
	Type   string
	Target any
}

func (Ref) Kind() ShapeKind { return ShapeRef }
func (Ref) relayValue()     {}

// Scalar is a numeric value.
type Scalar int64

func (Scalar) Kind() ShapeKind { return ShapeScalar }
func (Scalar) relayValue()     {}

// RefEqualFunc is an equality policy for references of one type.
type RefEqualFunc func(a, b Ref) bool

// Equal compares two values with the semantics of their shape:
// enumerations and records by value, scalars numerically, references by
// identity unless refEq supplies a policy.
func Equal(a, b Value, refEq RefEqualFunc) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case Void:
		return true
	case Scalar:
		return av == b.(Scalar)
	case Enum:
		bv := b.(Enum)
		return av.Type == bv.Type && av.Ordinal == bv.Ordinal
	case Record:
		bv := b.(Record)
		return av.Type == bv.Type && fieldEqual(av.Fields, bv.Fields)
	case Ref:
		bv := b.(Ref)
		if av.Type != bv.Type {
			return false
		}
		if refEq != nil {
			return refEq(av, bv)
		}
		return sameTarget(av.Target, bv.Target)
	default:
		return false
	}
}

// sameTarget compares reference targets by identity without panicking on
// uncomparable dynamic types.
func sameTarget(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
