package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/compiler"
	"github.com/roach88/mirror/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-dir>",
		Short: "Compile object schemas to member descriptors",
		Long: `Compile the CUE object schemas in a directory and emit the member
descriptors as canonical JSON, one object per declared type.

Examples:
  mirror compile ./schemas
  mirror compile ./schemas -o descriptors.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write descriptors to this file instead of stdout")
	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadSchemas(dir)
	if err != nil {
		code := ErrCodeGeneric
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "compile", err)
	}
	if errs := compiler.Validate(loaded.Objects); len(errs) > 0 {
		_ = formatter.Error(errs[0].Code, errs[0].Error(), errs)
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
	}

	data, err := MarshalDescriptors(loaded.Objects)
	if err != nil {
		return WrapExitError(ExitFailure, "encode descriptors", err)
	}

	if opts.Output == "" {
		_, err := fmt.Fprintln(formatter.Writer, string(data))
		return err
	}
	if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "write descriptors", err)
	}
	formatter.VerboseLog("Wrote %d object descriptor(s) to %s", len(loaded.Objects), opts.Output)
	return nil
}

// MarshalDescriptors renders object specs as canonical JSON. Members keep
// their declaration order.
func MarshalDescriptors(specs []ir.ObjectSpec) ([]byte, error) {
	objects := make([]any, len(specs))
	for i, spec := range specs {
		members := make([]any, len(spec.Members))
		for j, m := range spec.Members {
			params := make([]any, len(m.Params))
			for k, p := range m.Params {
				params[k] = p.String()
			}
			members[j] = map[string]any{
				"name":      m.Name,
				"kind":      string(m.Kind),
				"category":  string(m.Category),
				"direction": m.Direction.String(),
				"params":    params,
				"result":    m.Result.String(),
			}
		}
		objects[i] = map[string]any{
			"type":    spec.Type,
			"members": members,
		}
	}
	return ir.MarshalCanonical(objects)
}
