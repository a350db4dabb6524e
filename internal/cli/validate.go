package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/compiler"
)

// ValidationIssue is one problem reported by validate.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult is the output of validate.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Objects []string          `json:"objects"`
	Members int               `json:"members"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate object schemas",
		Long: `Compile and validate the CUE object schemas in a directory.

Every member must declare a category and direction; shapes must satisfy
the rules of their category (properties are never deferred, notifiers
announce at most one value, and so on).

Examples:
  mirror validate ./schemas
  mirror validate ./schemas --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadSchemas(dir)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
		}
		if loadErr.Code != ErrCodeCompile {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return WrapExitError(ExitCommandError, "validate", err)
		}
		return reportValidation(formatter, ValidationResult{
			Errors: []ValidationIssue{{Code: loadErr.Code, Field: "schema", Message: loadErr.Message, Line: loadErr.Line()}},
		})
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := ValidationResult{Objects: []string{}}
	for _, spec := range loaded.Objects {
		formatter.VerboseLog("Validating object: %s", spec.Type)
		result.Objects = append(result.Objects, spec.Type)
		result.Members += len(spec.Members)
	}
	for _, ve := range compiler.Validate(loaded.Objects) {
		result.Errors = append(result.Errors, ValidationIssue{Code: ve.Code, Field: ve.Field, Message: ve.Message})
	}
	result.Valid = len(result.Errors) == 0
	return reportValidation(formatter, result)
}

func reportValidation(f *OutputFormatter, result ValidationResult) error {
	if result.Valid {
		if f.JSON() {
			return f.Success(result)
		}
		f.Printf("✓ %d object schema(s) valid (%d members)\n", len(result.Objects), result.Members)
		return nil
	}

	if f.JSON() {
		_ = f.Error(result.Errors[0].Code, "validation failed", result)
	} else {
		f.Printf("✗ Validation failed with %d error(s):\n", len(result.Errors))
		for _, e := range result.Errors {
			if e.Line > 0 {
				f.Printf("  [%s] line %d: %s: %s\n", e.Code, e.Line, e.Field, e.Message)
			} else {
				f.Printf("  [%s] %s: %s\n", e.Code, e.Field, e.Message)
			}
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
}
