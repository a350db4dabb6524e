// Package store provides a SQLite-backed relay journal.
//
// The journal is an append-only log of relay events: every envelope a
// node sent, applied, ignored, dropped or rejected, with the reason.
// It is written by Journal, an engine observer, and read back by the
// trace command.
//
// # Ordering
//
//   - Rows are read back in insertion order (id ASC), which is the order
//     the node observed them.
//   - seq is the sender's logical clock, never a wall-clock timestamp.
//
// # Idempotency
//
//   - UNIQUE(node_id, envelope_id, outcome) makes re-recording the same
//     observation a no-op.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store
