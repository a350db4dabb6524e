// Package registry holds the explicit registration table of an object's
// remotely relayed members.
//
// A Builder collects one declaration per member (name, direction, shapes
// and a type-erased invoker). Build validates the whole table once and
// returns an immutable Snapshot, or a *ConfigError listing every problem.
// Snapshots are safe for concurrent reads without locking.
//
// FromSpec binds a compiled object schema (see internal/compiler) to Go
// implementations, so the relay surface can be declared in CUE and
// implemented in Go.
package registry
