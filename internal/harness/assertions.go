package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/mirror/internal/engine"
)

// AssertionError describes a failed trace assertion.
type AssertionError struct {
	Assertion Assertion
	Expected  string
	Actual    string
}

func (e *AssertionError) Error() string {
	where := "any node"
	if e.Assertion.Node != "" {
		where = "node " + e.Assertion.Node
	}
	return fmt.Sprintf("%s on %s: expected %s, got %s", e.Assertion.Type, where, e.Expected, e.Actual)
}

func evaluateAssertion(a Assertion, trace []TraceEvent) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(a, trace)
	case AssertTraceCount:
		return assertTraceCount(a, trace)
	case AssertTraceOrder:
		return assertTraceOrder(a, trace)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (a Assertion) matches(ev TraceEvent) bool {
	if a.Node != "" && ev.Node != a.Node {
		return false
	}
	if a.Outcome != "" && ev.Outcome != string(a.Outcome) {
		return false
	}
	if a.Kind != "" && ev.Kind != string(a.Kind) {
		return false
	}
	return true
}

func countMatches(a Assertion, trace []TraceEvent) int {
	n := 0
	for _, ev := range trace {
		if a.matches(ev) {
			n++
		}
	}
	return n
}

func assertTraceContains(a Assertion, trace []TraceEvent) error {
	if countMatches(a, trace) > 0 {
		return nil
	}
	return &AssertionError{Assertion: a, Expected: describeMatch(a), Actual: "no matching event"}
}

func assertTraceCount(a Assertion, trace []TraceEvent) error {
	if got := countMatches(a, trace); got != a.Count {
		return &AssertionError{
			Assertion: a,
			Expected:  fmt.Sprintf("%d x %s", a.Count, describeMatch(a)),
			Actual:    fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func assertTraceOrder(a Assertion, trace []TraceEvent) error {
	var got []engine.Outcome
	for _, ev := range trace {
		if ev.Node == a.Node && (a.Kind == "" || ev.Kind == string(a.Kind)) {
			got = append(got, engine.Outcome(ev.Outcome))
		}
	}
	if !slices.Equal(got, a.Outcomes) {
		return &AssertionError{
			Assertion: a,
			Expected:  fmt.Sprintf("%v", a.Outcomes),
			Actual:    fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func describeMatch(a Assertion) string {
	s := string(a.Outcome)
	if a.Kind != "" {
		s += " " + string(a.Kind)
	}
	return s
}
