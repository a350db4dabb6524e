// Package codec encodes relayed values for the wire.
//
// The engine is codec-agnostic: it only needs something that turns an
// ir.Value of a declared shape into bytes and back. JSON is the codec used
// by every transport in this repository.
package codec

import (
	"encoding/json"
	"errors"

	"github.com/roach88/mirror/internal/ir"
)

var (
	// ErrShapeMismatch is returned when a value or payload does not
	// conform to the declared shape.
	ErrShapeMismatch = errors.New("value does not match shape")

	// ErrNoReferenceCodec is returned when a reference type has no
	// registered ReferenceCodec.
	ErrNoReferenceCodec = errors.New("no reference codec registered")
)

// Codec encodes and decodes values of a declared shape.
// The deferred flag of a shape does not affect the encoding.
type Codec interface {
	Encode(shape ir.Shape, v ir.Value) (json.RawMessage, error)
	Decode(shape ir.Shape, raw json.RawMessage) (ir.Value, error)
}

// ReferenceCodec serializes the targets of one reference type.
// Domain objects cannot be encoded generically, so callers supply this.
type ReferenceCodec struct {
	Encode func(target any) ([]byte, error)
	Decode func(data []byte) (any, error)
}
