package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mirror/internal/ir"
)

// CompileSource compiles every object declared in a CUE source file.
func CompileSource(filename string, src []byte) ([]ir.ObjectSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileObjects(v)
}

// CompileObjects compiles every field of v's "object" struct, in
// declaration order. A missing "object" struct yields no specs.
func CompileObjects(v cue.Value) ([]ir.ObjectSpec, error) {
	objects := v.LookupPath(cue.ParsePath("object"))
	if !objects.Exists() {
		return nil, nil
	}

	iter, err := objects.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var specs []ir.ObjectSpec
	for iter.Next() {
		spec, err := CompileObject(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// CompileObject parses a CUE value into an ObjectSpec.
//
// The CUE value should be the object struct itself, e.g.:
//
//	v := ctx.CompileString(`object: Player: member: { ... }`)
//	spec, err := CompileObject(v.LookupPath(cue.ParsePath("object.Player")))
func CompileObject(v cue.Value) (*ir.ObjectSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ObjectSpec{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Type = labels[len(labels)-1].String()
	}

	membersVal := v.LookupPath(cue.ParsePath("member"))
	if !membersVal.Exists() {
		return nil, &CompileError{
			Field:   "member",
			Message: "at least one member is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := membersVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		m, err := parseMember(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Members = append(spec.Members, m)
	}

	if len(spec.Members) == 0 {
		return nil, &CompileError{
			Field:   "member",
			Message: "at least one member is required",
			Pos:     membersVal.Pos(),
		}
	}
	return spec, nil
}

func parseMember(name string, v cue.Value) (ir.MemberSpec, error) {
	m := ir.MemberSpec{Name: name}
	field := func(f string) string { return fmt.Sprintf("member.%s.%s", name, f) }

	category, pos, err := requiredString(v, "category", field)
	if err != nil {
		return m, err
	}
	m.Category = ir.Category(category)
	kind, ok := ir.ValidCategories[m.Category]
	if !ok {
		return m, &CompileError{
			Field:   field("category"),
			Message: fmt.Sprintf("unrecognized category %q", category),
			Pos:     pos,
		}
	}
	m.Kind = kind

	if s, pos, ok, err := optionalString(v, "kind"); err != nil {
		return m, err
	} else if ok && ir.MemberKind(s) != kind {
		return m, &CompileError{
			Field:   field("kind"),
			Message: fmt.Sprintf("kind %q does not match category %q", s, category),
			Pos:     pos,
		}
	}

	direction, pos, err := requiredString(v, "direction", field)
	if err != nil {
		return m, err
	}
	if m.Direction, err = ir.ParseDirection(direction); err != nil {
		return m, &CompileError{Field: field("direction"), Message: err.Error(), Pos: pos}
	}

	if m.Category == ir.CategoryUnsupported {
		// Unsupported members have no shapes; any declared are ignored.
		m.Result = ir.Sync(ir.ShapeNone)
		return m, nil
	}

	result := "none"
	if s, rpos, ok, err := optionalString(v, "result"); err != nil {
		return m, err
	} else if ok {
		result, pos = s, rpos
	} else if m.Category == ir.CategoryProperty || m.Category == ir.CategorySequence {
		return m, &CompileError{
			Field:   field("result"),
			Message: fmt.Sprintf("%s members require a result shape", m.Category),
			Pos:     v.Pos(),
		}
	}
	if m.Result, err = ir.ParseShape(result); err != nil {
		return m, &CompileError{Field: field("result"), Message: err.Error(), Pos: pos}
	}

	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		list, err := paramsVal.List()
		if err != nil {
			return m, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			s, err := list.Value().String()
			if err != nil {
				return m, formatCUEError(err)
			}
			p, err := ir.ParseShape(s)
			if err != nil {
				return m, &CompileError{
					Field:   field(fmt.Sprintf("params[%d]", i)),
					Message: err.Error(),
					Pos:     list.Value().Pos(),
				}
			}
			m.Params = append(m.Params, p)
		}
	}
	return m, nil
}

func requiredString(v cue.Value, name string, field func(string) string) (string, token.Pos, error) {
	s, pos, ok, err := optionalString(v, name)
	if err != nil {
		return "", pos, err
	}
	if !ok {
		return "", v.Pos(), &CompileError{
			Field:   field(name),
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	return s, pos, nil
}

func optionalString(v cue.Value, name string) (string, token.Pos, bool, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", token.NoPos, false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", f.Pos(), false, formatCUEError(err)
	}
	return s, f.Pos(), true, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
