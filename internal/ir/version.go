package ir

// Version constants for the envelope schema and engine.
const (
	// ProtocolVersion is stamped on every envelope.
	ProtocolVersion = "1"

	// EngineVersion is the mirror engine version.
	EngineVersion = "0.1.0"
)
