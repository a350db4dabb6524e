package engine

import "github.com/roach88/mirror/internal/ir"

// Outcome classifies what a node did with an envelope.
type Outcome string

const (
	// OutcomeSent: the envelope was handed to the transport.
	OutcomeSent Outcome = "sent"
	// OutcomeSendFailed: the transport refused the envelope.
	OutcomeSendFailed Outcome = "send_failed"
	// OutcomeApplied: the envelope was applied to a local object.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored: the local direction does not permit receiving.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDropped: no local object or pending fetch matched.
	OutcomeDropped Outcome = "dropped"
	// OutcomeRejected: the envelope disagrees with the local descriptor.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed: the local body failed while applying the envelope.
	OutcomeFailed Outcome = "failed"
)

// RelayEvent describes one observed step of the relay protocol.
type RelayEvent struct {
	Node     string
	Outcome  Outcome
	Envelope ir.Envelope
	Reason   string
}

// Observer receives relay events. Observers run synchronously on the
// goroutine that produced the event and must not block.
type Observer interface {
	Observe(ev RelayEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev RelayEvent)

// Observe implements Observer.
func (f ObserverFunc) Observe(ev RelayEvent) { f(ev) }
