// Package harness runs relay scenarios against an in-process group of
// nodes.
//
// A scenario names one relayed member kind, a direction, the sending
// node's mode and a set of listeners. The harness wires every node to a
// loopback hub, performs the write or call on the sender, waits for a
// delivery barrier to reach each listener and then reports which
// listeners observed the relay together with the recorded trace.
//
// Traces are deterministic: node ids, the instance id and sequence
// numbers are fixed, and events are grouped per node in the order each
// node observed them. RunWithGolden compares that trace against
// testdata/golden/<name>.golden.
package harness
