package ir

import (
	"fmt"
)

// MemberKind distinguishes methods from properties.
type MemberKind string

const (
	KindMethod   MemberKind = "method"
	KindProperty MemberKind = "property"
)

// Category states how a relayed member behaves on the receiving side.
type Category string

const (
	// CategoryActor is a method invoked for effect on every receiving node.
	CategoryActor Category = "actor"

	// CategoryNotifier is a method that only rebroadcasts a local event.
	// Receivers raise the change notification without running any body.
	CategoryNotifier Category = "notifier"

	// CategorySequence is a guarded fetch producing a list of results.
	CategorySequence Category = "sequence"

	// CategoryUnsupported rejects immediately on every node.
	CategoryUnsupported Category = "unsupported"

	// CategoryProperty is the category of every property.
	CategoryProperty Category = "property"
)

// ValidCategories maps each category to the member kind it belongs to.
var ValidCategories = map[Category]MemberKind{
	CategoryActor:       KindMethod,
	CategoryNotifier:    KindMethod,
	CategorySequence:    KindMethod,
	CategoryUnsupported: KindMethod,
	CategoryProperty:    KindProperty,
}

// MemberSpec is the descriptor of one remotely markable member.
//
// Result is the return shape of actors and notifiers, the item shape of
// sequences, and the value shape of properties.
type MemberSpec struct {
	Name      string     `json:"name"`
	Kind      MemberKind `json:"kind"`
	Category  Category   `json:"category"`
	Direction Direction  `json:"direction"`
	Params    []Shape    `json:"params,omitempty"`
	Result    Shape      `json:"result"`
}

// ObjectSpec describes the relayable surface of one declared type.
type ObjectSpec struct {
	Type    string       `json:"type"`
	Members []MemberSpec `json:"members"`
}

// Member returns the spec of the named member.
func (o *ObjectSpec) Member(name string) (MemberSpec, bool) {
	for _, m := range o.Members {
		if m.Name == name {
			return m, true
		}
	}
	return MemberSpec{}, false
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the member against descriptor rules.
// Returns all errors (not fail-fast).
func (m *MemberSpec) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   m.Name + "." + field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if m.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "member name is required"})
	}
	if !m.Direction.Valid() {
		add("direction", "unrecognized direction %d", uint8(m.Direction))
	}

	kind, ok := ValidCategories[m.Category]
	switch {
	case !ok:
		add("category", "unrecognized category %q", m.Category)
	case kind != m.Kind:
		add("category", "category %q is not valid for a %s", m.Category, m.Kind)
	}

	checkShape := func(field string, s Shape) {
		switch {
		case !s.Valid():
			add(field, "unrecognized shape kind %d", uint8(s.Kind))
		case s.Kind.Typed() && s.Type == "":
			add(field, "%s requires a type name", s.Kind)
		case !s.Kind.Typed() && s.Type != "":
			add(field, "%s takes no type name", s.Kind)
		}
	}

	checkShape("result", m.Result)
	for i, p := range m.Params {
		checkShape(fmt.Sprintf("params[%d]", i), p)
		if p.Deferred {
			add(fmt.Sprintf("params[%d]", i), "parameters cannot be deferred")
		}
		if p.Kind == ShapeNone {
			add(fmt.Sprintf("params[%d]", i), "parameters cannot have shape none")
		}
	}

	switch m.Category {
	case CategoryProperty:
		if m.Result.Deferred {
			add("result", "properties cannot have a deferred shape")
		}
		if m.Result.Kind == ShapeNone {
			add("result", "properties cannot have shape none")
		}
		if len(m.Params) > 0 {
			add("params", "properties do not take parameters")
		}
	case CategorySequence:
		if m.Result.Kind == ShapeNone {
			add("result", "sequence items cannot have shape none")
		}
	case CategoryNotifier:
		if m.Result.Deferred {
			add("result", "notifiers announce a value that already exists and cannot be deferred")
		}
		if len(m.Params) > 1 {
			add("params", "notifiers announce at most one value")
		}
		if len(m.Params) == 1 && m.Params[0] != m.Result.Now() {
			add("params[0]", "announced value shape %s does not match result shape %s", m.Params[0], m.Result)
		}
	}

	return errs
}

// Validate checks every member and rejects duplicate names.
func (o *ObjectSpec) Validate() []ValidationError {
	var errs []ValidationError
	if o.Type == "" {
		errs = append(errs, ValidationError{Field: "type", Message: "type name is required"})
	}

	seen := make(map[string]bool, len(o.Members))
	for i := range o.Members {
		m := &o.Members[i]
		if seen[m.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("members[%d]", i),
				Message: fmt.Sprintf("duplicate member name: %q", m.Name),
			})
		}
		seen[m.Name] = true
		errs = append(errs, m.Validate()...)
	}
	return errs
}
