package ir

import "encoding/json"

// EnvelopeKind discriminates the payload of an envelope.
type EnvelopeKind string

const (
	// EnvelopeCall relays a method invocation (actor or notifier).
	EnvelopeCall EnvelopeKind = "call"
	// EnvelopeProperty relays a property write.
	EnvelopeProperty EnvelopeKind = "property"
	// EnvelopeFetch requests a sequence from capable peers.
	EnvelopeFetch EnvelopeKind = "fetch"
	// EnvelopeBatch carries part of a sequence back to the requester.
	EnvelopeBatch EnvelopeKind = "batch"
	// EnvelopeEnd terminates a sequence, optionally with an error.
	EnvelopeEnd EnvelopeKind = "end"
)

// Envelope is the unit crossing a transport for one relayed operation.
//
// Params and Shape are the sender's declared shapes; receivers compare them
// against their own member descriptor before decoding Payload.
type Envelope struct {
	ID          string            `json:"id"`
	Version     string            `json:"version"`
	Kind        EnvelopeKind      `json:"kind"`
	Correlation string            `json:"correlation"`
	Member      string            `json:"member"`
	Params      []Shape           `json:"params,omitempty"`
	Shape       Shape             `json:"shape"`
	Payload     []json.RawMessage `json:"payload,omitempty"`
	Sender      string            `json:"sender"`
	SenderRoles RoleSet           `json:"sender_roles"`
	Token       string            `json:"token,omitempty"` // Fetch request correlation
	Seq         int64             `json:"seq"`             // Sender's logical clock
	Error       string            `json:"error,omitempty"` // End envelopes only
}

// Clone returns a deep copy so in-memory transports never share payload
// buffers between nodes.
func (e Envelope) Clone() Envelope {
	c := e
	if e.Params != nil {
		c.Params = append([]Shape(nil), e.Params...)
	}
	if e.Payload != nil {
		c.Payload = make([]json.RawMessage, len(e.Payload))
		for i, p := range e.Payload {
			c.Payload[i] = append(json.RawMessage(nil), p...)
		}
	}
	return c
}

// ShapesMatch reports whether two shape lists are identical.
func ShapesMatch(a, b []Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
