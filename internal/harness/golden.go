package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mirror/internal/ir"
)

// TraceSnapshot captures the deterministic part of a scenario result.
type TraceSnapshot struct {
	ScenarioName string
	Relayed      map[string]bool
	Trace        []TraceEvent
}

// toCanonicalMap converts the snapshot to a map[string]any, the form
// ir.MarshalCanonical accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = map[string]any{
			"node":    ev.Node,
			"outcome": ev.Outcome,
			"kind":    ev.Kind,
			"member":  ev.Member,
			"seq":     ev.Seq,
		}
	}
	relayed := make(map[string]any, len(s.Relayed))
	for name, ok := range s.Relayed {
		relayed[name] = ok
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"relayed":       relayed,
		"trace":         trace,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Relayed: result.Relayed, Trace: result.Trace}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against its golden
// file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
