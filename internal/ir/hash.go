package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainCorrelation = "mirror/correlation/v1"
	DomainEnvelope    = "mirror/envelope/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CorrelationID derives the identity shared by every instance of one
// logical object, on every node.
//
// Format: "<typeName>:<sha256 hex>". The hash covers the canonical JSON of
// all three components, so equal inputs yield byte-identical ids and any
// differing component yields a different id.
func CorrelationID(contextID, typeName, instanceID string) (string, error) {
	if typeName == "" {
		return "", fmt.Errorf("CorrelationID: type name is required")
	}
	if instanceID == "" {
		return "", fmt.Errorf("CorrelationID: instance id is required")
	}

	canonical, err := MarshalCanonical(Object{
		"context":  String(contextID),
		"type":     String(typeName),
		"instance": String(instanceID),
	})
	if err != nil {
		return "", fmt.Errorf("CorrelationID: failed to marshal: %w", err)
	}

	return typeName + ":" + hashWithDomain(DomainCorrelation, canonical), nil
}

// MustCorrelationID is like CorrelationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCorrelationID(contextID, typeName, instanceID string) string {
	id, err := CorrelationID(contextID, typeName, instanceID)
	if err != nil {
		panic(err)
	}
	return id
}

// EnvelopeID computes the id of an envelope emitted by a node.
// A node never reuses a sequence number, so (sender, seq) is unique.
func EnvelopeID(sender string, seq int64) string {
	canonical, err := MarshalCanonical(Object{
		"sender": String(sender),
		"seq":    Int(seq),
	})
	if err != nil {
		// Strings and ints always marshal.
		panic(err)
	}
	return hashWithDomain(DomainEnvelope, canonical)
}
