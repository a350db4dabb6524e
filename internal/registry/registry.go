package registry

import (
	"context"
	"fmt"

	"github.com/roach88/mirror/internal/ir"
)

// Invoker runs a method body with decoded arguments.
//
// For deferred result shapes the engine runs the invoker on its own
// goroutine and hands the caller a future; synchronous invokers run on the
// caller's goroutine.
type Invoker func(ctx context.Context, args []ir.Value) (ir.Value, error)

// Provider produces the items of a sequence member.
type Provider func(ctx context.Context, args []ir.Value) ([]ir.Value, error)

// Member is one entry of the registration table.
type Member struct {
	Spec ir.MemberSpec

	// Invoke is the body of an actor, or the optional value computation of
	// a notifier.
	Invoke Invoker

	// Provide is the body of a sequence.
	Provide Provider

	// Initial is the starting value of a property.
	Initial ir.Value
}

// Snapshot is the immutable registration table of one declared type.
type Snapshot struct {
	typeName string
	order    []string
	members  map[string]Member
	local    map[string]Invoker
	refEq    ir.RefEqualFunc
}

// Type returns the declared type name.
func (s *Snapshot) Type() string {
	return s.typeName
}

// Lookup returns the named relayed member.
func (s *Snapshot) Lookup(name string) (Member, bool) {
	m, ok := s.members[name]
	return m, ok
}

// Local returns the named purely local method.
func (s *Snapshot) Local(name string) (Invoker, bool) {
	fn, ok := s.local[name]
	return fn, ok
}

// Members returns the member descriptors in declaration order.
func (s *Snapshot) Members() []ir.MemberSpec {
	out := make([]ir.MemberSpec, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.members[name].Spec)
	}
	return out
}

// Spec returns the object descriptor of the snapshot.
func (s *Snapshot) Spec() ir.ObjectSpec {
	return ir.ObjectSpec{Type: s.typeName, Members: s.Members()}
}

// Equal compares two values of this type's members, using the declared
// reference equality policy if one was supplied.
func (s *Snapshot) Equal(a, b ir.Value) bool {
	return ir.Equal(a, b, s.refEq)
}

// Builder collects member declarations for one type.
//
// Builder methods return the builder so declarations can be chained.
// Problems are collected and reported together by Build.
type Builder struct {
	typeName string
	members  []Member
	local    map[string]Invoker
	refEq    ir.RefEqualFunc
	problems []ir.ValidationError
}

// New starts a registration table for the named type.
func New(typeName string) *Builder {
	return &Builder{
		typeName: typeName,
		local:    make(map[string]Invoker),
	}
}

// Method declares a synchronous actor: a method invoked for effect on
// every node that may receive it.
func (b *Builder) Method(name string, dir ir.Direction, params []ir.Shape, result ir.Shape, fn Invoker) *Builder {
	return b.Declare(Member{
		Spec:   methodSpec(name, ir.CategoryActor, dir, params, result.Now()),
		Invoke: fn,
	})
}

// AsyncMethod declares an actor whose result is delivered later.
func (b *Builder) AsyncMethod(name string, dir ir.Direction, params []ir.Shape, result ir.Shape, fn Invoker) *Builder {
	return b.Declare(Member{
		Spec:   methodSpec(name, ir.CategoryActor, dir, params, result.Async()),
		Invoke: fn,
	})
}

// Notifier declares a method that only announces a local event.
//
// The announced value has the given shape and is passed as the single
// argument; a none shape announces nothing. fn may be nil, in which case
// the argument itself is announced.
func (b *Builder) Notifier(name string, dir ir.Direction, value ir.Shape, fn Invoker) *Builder {
	var params []ir.Shape
	if value.Kind != ir.ShapeNone {
		params = []ir.Shape{value}
	}
	return b.Declare(Member{
		Spec:   methodSpec(name, ir.CategoryNotifier, dir, params, value),
		Invoke: fn,
	})
}

// Sequence declares a guarded fetch producing items of the given shape.
func (b *Builder) Sequence(name string, dir ir.Direction, params []ir.Shape, item ir.Shape, fn Provider) *Builder {
	return b.Declare(Member{
		Spec:    methodSpec(name, ir.CategorySequence, dir, params, item.Async()),
		Provide: fn,
	})
}

// Unsupported declares a method that always fails with an unsupported
// operation error on every node.
func (b *Builder) Unsupported(name string, dir ir.Direction) *Builder {
	return b.Declare(Member{
		Spec: methodSpec(name, ir.CategoryUnsupported, dir, nil, ir.Sync(ir.ShapeNone)),
	})
}

// Property declares a relayed property with its initial value.
func (b *Builder) Property(name string, dir ir.Direction, shape ir.Shape, initial ir.Value) *Builder {
	return b.Declare(Member{
		Spec: ir.MemberSpec{
			Name:      name,
			Kind:      ir.KindProperty,
			Category:  ir.CategoryProperty,
			Direction: dir,
			Result:    shape,
		},
		Initial: initial,
	})
}

// Local declares a method with no relay behavior. Invoking it runs fn
// directly and never touches the transport.
func (b *Builder) Local(name string, fn Invoker) *Builder {
	if _, dup := b.local[name]; dup {
		b.problem(name, "duplicate local method name")
	}
	if fn == nil {
		b.problem(name, "local method requires an implementation")
	}
	b.local[name] = fn
	return b
}

// RefEqual sets the equality policy for reference values of this type.
// Without one, references compare by identity.
func (b *Builder) RefEqual(fn ir.RefEqualFunc) *Builder {
	b.refEq = fn
	return b
}

// Declare adds a fully formed member. The typed helpers above are usually
// more convenient.
func (b *Builder) Declare(m Member) *Builder {
	b.members = append(b.members, m)
	return b
}

func (b *Builder) problem(field, format string, args ...any) {
	b.problems = append(b.problems, ir.ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// Build validates every declaration and returns the immutable snapshot.
// All problems are reported in a single *ConfigError.
func (b *Builder) Build() (*Snapshot, error) {
	problems := append([]ir.ValidationError(nil), b.problems...)
	add := func(field, format string, args ...any) {
		problems = append(problems, ir.ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	spec := ir.ObjectSpec{Type: b.typeName}
	for _, m := range b.members {
		spec.Members = append(spec.Members, m.Spec)
	}
	problems = append(problems, spec.Validate()...)

	snap := &Snapshot{
		typeName: b.typeName,
		members:  make(map[string]Member, len(b.members)),
		local:    make(map[string]Invoker, len(b.local)),
		refEq:    b.refEq,
	}

	for _, m := range b.members {
		name := m.Spec.Name
		switch m.Spec.Category {
		case ir.CategoryActor:
			if m.Invoke == nil {
				add(name, "actor requires an implementation")
			}
		case ir.CategorySequence:
			if m.Provide == nil {
				add(name, "sequence requires a provider")
			}
		case ir.CategoryProperty:
			switch {
			case m.Initial == nil:
				add(name, "property requires an initial value")
			case !m.Spec.Result.Accepts(m.Initial):
				add(name, "initial value %s does not conform to shape %s", describe(m.Initial), m.Spec.Result)
			}
		}
		if _, clash := b.local[name]; clash {
			add(name, "name is declared both as a local method and a relayed member")
		}

		if _, dup := snap.members[name]; !dup {
			snap.order = append(snap.order, name)
			snap.members[name] = m
		}
	}
	for name, fn := range b.local {
		snap.local[name] = fn
	}

	if len(problems) > 0 {
		return nil, &ConfigError{Type: b.typeName, Problems: problems}
	}
	return snap, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or for declarations fixed at compile time.
func (b *Builder) MustBuild() *Snapshot {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func methodSpec(name string, cat ir.Category, dir ir.Direction, params []ir.Shape, result ir.Shape) ir.MemberSpec {
	return ir.MemberSpec{
		Name:      name,
		Kind:      ir.KindMethod,
		Category:  cat,
		Direction: dir,
		Params:    append([]ir.Shape(nil), params...),
		Result:    result,
	}
}

func describe(v ir.Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Kind().String()
}
