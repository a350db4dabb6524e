package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
)

// Scenario describes one relay experiment.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Member is the relayed member kind under test: property, actor or
	// notifier.
	Member string `yaml:"member"`

	// Direction is the member's declared direction. Defaults to None.
	Direction ir.Direction `yaml:"direction"`

	// Sender is the mode of the node performing the write or call.
	Sender ir.Mode `yaml:"sender"`

	// Value is the scalar written or passed as the call argument.
	Value int64 `yaml:"value"`

	// Listeners are the peers mirroring the sender's instance.
	Listeners []Listener `yaml:"listeners"`

	// Assertions validate the recorded trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Timeout bounds the whole run. Defaults to DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Listener is one mirroring peer.
type Listener struct {
	// Name is the listener's node id. Defaults to listener-<n>.
	Name string `yaml:"name,omitempty"`

	// Mode is the listener node's mode.
	Mode ir.Mode `yaml:"mode"`

	// Relayed is whether the listener is expected to observe the value.
	Relayed bool `yaml:"relayed"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of trace_contains, trace_count or trace_order.
	Type string `yaml:"type"`

	// Node restricts matching to one node. Empty matches every node.
	Node string `yaml:"node,omitempty"`

	// Outcome is the expected relay outcome (trace_contains, trace_count).
	Outcome engine.Outcome `yaml:"outcome,omitempty"`

	// Kind restricts matching to one envelope kind.
	Kind ir.EnvelopeKind `yaml:"kind,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Outcomes is the expected outcome sequence for Node (trace_order).
	Outcomes []engine.Outcome `yaml:"outcomes,omitempty"`
}

// Member kinds a scenario may exercise.
const (
	MemberProperty = "property"
	MemberActor    = "actor"
	MemberNotifier = "notifier"
)

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// DefaultTimeout bounds a scenario run when the scenario sets none.
const DefaultTimeout = 2 * time.Second

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and normalizes listener names.
func validateScenario(s *Scenario) error {
	var errs []error

	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch s.Member {
	case MemberProperty, MemberActor, MemberNotifier:
	default:
		errs = append(errs, fmt.Errorf("member %q must be one of %s, %s, %s",
			s.Member, MemberProperty, MemberActor, MemberNotifier))
	}
	if !s.Sender.Valid() {
		errs = append(errs, fmt.Errorf("sender mode %q is invalid", s.Sender))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %s must not be negative", s.Timeout))
	}
	if len(s.Listeners) == 0 {
		errs = append(errs, errors.New("at least one listener is required"))
	}

	seen := map[string]bool{senderNode: true}
	for i := range s.Listeners {
		l := &s.Listeners[i]
		if l.Name == "" {
			l.Name = fmt.Sprintf("listener-%d", i+1)
		}
		if seen[l.Name] {
			errs = append(errs, fmt.Errorf("listeners[%d]: duplicate node name %q", i, l.Name))
		}
		seen[l.Name] = true
		if !l.Mode.Valid() {
			errs = append(errs, fmt.Errorf("listeners[%d]: mode %q is invalid", i, l.Mode))
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Outcome == "" {
			return errors.New("trace_contains requires outcome")
		}
	case AssertTraceCount:
		if a.Outcome == "" {
			return errors.New("trace_count requires outcome")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count count %d must not be negative", a.Count)
		}
	case AssertTraceOrder:
		if a.Node == "" {
			return errors.New("trace_order requires node")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (s *Scenario) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}
