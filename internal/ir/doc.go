// Package ir provides the shared vocabulary of the mirror relay engine.
//
// This package contains value types and pure functions only. All other
// internal packages import ir; ir imports nothing internal.
//
// It defines:
//   - Roles and Modes: the capability set a node holds for its lifetime
//   - Directions and the resolver (MaySend, MayReceive, CanRelay)
//   - Shapes and Values: the closed tagged union carried by relayed members
//   - Field values used inside value-records (no floats, no null)
//   - Member and object specs, and the Envelope exchanged over a transport
//   - Correlation identities derived from canonical JSON
//
// Key design constraints:
//   - Resolution is a pure table lookup; no I/O, no state
//   - Correlation identities are content-addressed and never reassigned
//   - All JSON tags use snake_case
package ir
