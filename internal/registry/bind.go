package registry

import (
	"fmt"
	"sort"

	"github.com/roach88/mirror/internal/ir"
)

// Bindings supplies Go implementations for the members of an object schema.
// Keys are member names.
type Bindings struct {
	Methods    map[string]Invoker
	Sequences  map[string]Provider
	Properties map[string]ir.Value
	Local      map[string]Invoker
	RefEqual   ir.RefEqualFunc
}

// FromSpec builds a snapshot from a compiled object schema and its
// implementations.
//
// The schema is authoritative for names, directions and shapes. Besides
// the usual Build checks, FromSpec rejects bindings that name no schema
// member, bindings of the wrong member category, and schema members that
// have no implementation.
func FromSpec(spec ir.ObjectSpec, impl Bindings) (*Snapshot, error) {
	b := New(spec.Type)
	used := make(map[string]bool)

	for _, ms := range spec.Members {
		m := Member{Spec: ms}
		switch ms.Category {
		case ir.CategoryActor, ir.CategoryNotifier:
			m.Invoke = impl.Methods[ms.Name]
			used["method:"+ms.Name] = m.Invoke != nil
		case ir.CategorySequence:
			m.Provide = impl.Sequences[ms.Name]
			used["sequence:"+ms.Name] = m.Provide != nil
		case ir.CategoryProperty:
			m.Initial = impl.Properties[ms.Name]
			used["property:"+ms.Name] = m.Initial != nil
		}
		b.Declare(m)
	}

	for _, name := range sortedKeys(impl.Methods) {
		if !used["method:"+name] {
			b.problem(name, "method implementation %s", unboundReason(spec, name, "an actor or notifier"))
		}
	}
	for _, name := range sortedKeys(impl.Sequences) {
		if !used["sequence:"+name] {
			b.problem(name, "sequence implementation %s", unboundReason(spec, name, "a sequence"))
		}
	}
	for _, name := range sortedKeys(impl.Properties) {
		if !used["property:"+name] {
			b.problem(name, "property value %s", unboundReason(spec, name, "a property"))
		}
	}

	for _, name := range sortedKeys(impl.Local) {
		b.Local(name, impl.Local[name])
	}
	if impl.RefEqual != nil {
		b.RefEqual(impl.RefEqual)
	}

	return b.Build()
}

func unboundReason(spec ir.ObjectSpec, name, want string) string {
	m, ok := spec.Member(name)
	if !ok {
		return "has no schema member"
	}
	return fmt.Sprintf("conflicts with schema: %q is declared as %s, not %s", name, m.Category, want)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
