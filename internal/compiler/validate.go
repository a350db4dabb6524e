package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/mirror/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrUnsupportedType   = "E200" // unsupported value passed to Validate
	ErrTypeNameInvalid   = "E201" // type name missing or not an identifier
	ErrNoMembers         = "E202" // at least one member required
	ErrMemberNameInvalid = "E203" // member name not an identifier
	ErrDescriptorRule    = "E204" // member descriptor breaks a shape/category rule
	ErrDuplicateType     = "E205" // two schemas declare the same type
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled object schemas.
// Returns all errors found (does not fail-fast).
// Supports ObjectSpec values, pointers and slices.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ObjectSpec:
		return validateObjectSpec(spec)
	case ir.ObjectSpec:
		return validateObjectSpec(&spec)
	case []ir.ObjectSpec:
		return validateObjectSpecs(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported schema type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateObjectSpecs(specs []ir.ObjectSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(specs))
	for i := range specs {
		if seen[specs[i].Type] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("object.%s", specs[i].Type),
				Message: fmt.Sprintf("duplicate object type: %q", specs[i].Type),
				Code:    ErrDuplicateType,
			})
		}
		seen[specs[i].Type] = true
		errs = append(errs, validateObjectSpec(&specs[i])...)
	}
	return errs
}

func validateObjectSpec(spec *ir.ObjectSpec) []ValidationError {
	var errs []ValidationError
	prefix := "object." + spec.Type

	// E201: type name
	if !identifier.MatchString(spec.Type) {
		errs = append(errs, ValidationError{
			Field:   "object",
			Message: fmt.Sprintf("type name %q must be an identifier", spec.Type),
			Code:    ErrTypeNameInvalid,
		})
	}

	// E202: members
	if len(spec.Members) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix,
			Message: "at least one member is required",
			Code:    ErrNoMembers,
		})
	}

	// E203: member names
	for i, m := range spec.Members {
		if m.Name != "" && !identifier.MatchString(m.Name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.members[%d]", prefix, i),
				Message: fmt.Sprintf("member name %q must be an identifier", m.Name),
				Code:    ErrMemberNameInvalid,
			})
		}
	}

	// E204: descriptor rules shared with the runtime registry
	for _, problem := range spec.Validate() {
		if problem.Field == "type" {
			continue // reported as E201
		}
		errs = append(errs, ValidationError{
			Field:   prefix + "." + problem.Field,
			Message: problem.Message,
			Code:    ErrDescriptorRule,
		})
	}

	return errs
}
