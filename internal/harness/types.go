package harness

import "github.com/roach88/mirror/internal/engine"

// TraceEvent is one relay event observed during a scenario.
type TraceEvent struct {
	Node    string `json:"node"`
	Outcome string `json:"outcome"`
	Kind    string `json:"kind"`
	Member  string `json:"member"`
	Seq     int64  `json:"seq"`
}

func traceEvent(ev engine.RelayEvent) TraceEvent {
	return TraceEvent{
		Node:    ev.Node,
		Outcome: string(ev.Outcome),
		Kind:    string(ev.Envelope.Kind),
		Member:  ev.Envelope.Member,
		Seq:     ev.Envelope.Seq,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every listener matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Relayed records, per listener name, whether the listener observed
	// the sender's value.
	Relayed map[string]bool `json:"relayed"`

	// Trace holds the relay events grouped by node: the sender first, then
	// listeners in declaration order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Relayed: make(map[string]bool),
		Trace:   []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
