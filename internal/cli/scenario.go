package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Golden string // directory of <name>.golden snapshots
	Update bool   // rewrite golden snapshots
	Filter string // glob over scenario file names
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name    string          `json:"name"`
	File    string          `json:"file"`
	Pass    bool            `json:"pass"`
	Relayed map[string]bool `json:"relayed,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
}

// ScenarioSummary is the output of the scenario command.
type ScenarioSummary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file-or-dir>...",
		Short: "Run relay scenarios",
		Long: `Run YAML relay scenarios over an in-process loopback group.

Each scenario names a member kind, a direction, the sender's mode and
the listeners with whether each should observe the relay. Directories
are searched for .yaml and .yml files.

With --golden, each result's trace is compared against
<golden>/<name>.golden; --update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  mirror scenario ./scenarios
  mirror scenario ./scenarios/client_to_host.yaml --golden ./golden
  mirror scenario ./scenarios --filter "host_*" --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden trace snapshots")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots (requires --golden)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern over the file name")
	return cmd
}

func runScenarios(opts *ScenarioOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "find scenarios", err)
		}
		files = append(files, found...)
	}

	summary := ScenarioSummary{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		res := runScenarioFile(opts, file)
		summary.Scenarios = append(summary.Scenarios, res)
		if res.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if formatter.JSON() {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		writeScenarioText(formatter, summary)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", summary.Failed, summary.Total))
	}
	return nil
}

// findScenarioFiles expands path to scenario files. A file argument is
// taken as is; directories are walked for .yaml and .yml files.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path not found: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(p), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}

func runScenarioFile(opts *ScenarioOptions, file string) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("load: %v", err)}
		return res
	}
	res.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}
	res.Pass = result.Pass
	res.Relayed = result.Relayed
	res.Errors = result.Errors

	if opts.Golden == "" {
		return res
	}
	snapshot, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("snapshot: %v", err))
		return res
	}
	goldenPath := filepath.Join(opts.Golden, scenario.Name+".golden")

	if opts.Update {
		err := os.MkdirAll(opts.Golden, 0o755)
		if err == nil {
			err = os.WriteFile(goldenPath, snapshot, 0o644)
		}
		if err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, fmt.Sprintf("update golden: %v", err))
		}
		return res
	}

	want, err := os.ReadFile(goldenPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("golden file missing: %s", goldenPath))
	case err != nil:
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("read golden: %v", err))
	case !bytes.Equal(bytes.TrimSpace(want), snapshot):
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("trace differs from %s", goldenPath))
	}
	return res
}

func writeScenarioText(f *OutputFormatter, summary ScenarioSummary) {
	if summary.Total == 0 {
		f.Printf("No scenarios found.\n")
		return
	}
	for _, s := range summary.Scenarios {
		if s.Pass {
			f.Printf("✓ %s\n", s.Name)
			continue
		}
		f.Printf("✗ %s\n", s.Name)
		for _, e := range s.Errors {
			f.Printf("  %s\n", e)
		}
	}
	f.Printf("\n%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
}
