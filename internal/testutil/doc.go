// Package testutil provides deterministic helpers for tests and
// scenarios: sequential token generators, a relay event recorder and a
// silent logger.
package testutil
