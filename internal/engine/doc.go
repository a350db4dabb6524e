// Package engine implements the member-level relay engine.
//
// A Node is one participant in a broadcast group. It holds a fixed Mode,
// a transport and a table of mirrored objects keyed by correlation id.
// Objects wrap an application type's registration table and route every
// guarded call, property write and sequence fetch through the direction
// resolver.
//
// ARCHITECTURE:
//
// Outbound operations run on the caller's goroutine: the local body
// always executes, and when this node may send, an envelope is handed to
// the transport. Sends are fire-and-forget; a failed send is logged and
// observed but never fails the local call.
//
// Inbound envelopes are queued FIFO and applied by a single dispatch loop
// (Node.Run):
//  1. The transport handler enqueues the envelope.
//  2. Run dequeues envelopes one at a time.
//  3. The envelope is routed by correlation id to the local object.
//  4. The member's direction is checked against this node's roles.
//  5. The update is applied and local listeners are notified.
//
// Receivers never re-forward what they apply, so propagation is exactly
// one hop from the node that originated the operation.
//
// Deferred method bodies and sequence providers run on their own
// goroutines so a slow body never stalls the dispatch loop.
//
// Envelopes are stamped with a monotonic logical clock (Clock.Next).
package engine
