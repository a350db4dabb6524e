package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/roach88/mirror/internal/ir"
)

var null = json.RawMessage("null")

// JSON is the default Codec.
//
// Wire forms: none is null, an enumeration is its integral discriminant,
// a record is its fields as a canonical JSON object, a scalar is a JSON
// integer, and a reference is the base64 string of the bytes produced by
// the ReferenceCodec registered for its type.
type JSON struct {
	mu   sync.RWMutex
	refs map[string]ReferenceCodec
}

// NewJSON creates a JSON codec with no reference codecs.
func NewJSON() *JSON {
	return &JSON{refs: make(map[string]ReferenceCodec)}
}

// RegisterReference installs the codec for a reference type.
// Registering a type twice is an error.
func (c *JSON) RegisterReference(typeName string, rc ReferenceCodec) error {
	if typeName == "" {
		return fmt.Errorf("register reference: type name is required")
	}
	if rc.Encode == nil || rc.Decode == nil {
		return fmt.Errorf("register reference %s: encode and decode are required", typeName)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.refs[typeName]; dup {
		return fmt.Errorf("register reference %s: already registered", typeName)
	}
	c.refs[typeName] = rc
	return nil
}

func (c *JSON) reference(typeName string) (ReferenceCodec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rc, ok := c.refs[typeName]
	if !ok {
		return ReferenceCodec{}, fmt.Errorf("%w for type %q", ErrNoReferenceCodec, typeName)
	}
	return rc, nil
}

// Encode implements Codec.
func (c *JSON) Encode(shape ir.Shape, v ir.Value) (json.RawMessage, error) {
	if v == nil && shape.Kind == ir.ShapeNone {
		return null, nil
	}
	if !shape.Accepts(v) {
		return nil, fmt.Errorf("encode %s: %w (got %s)", shape, ErrShapeMismatch, kindOf(v))
	}

	switch val := v.(type) {
	case ir.Void:
		return null, nil
	case ir.Enum:
		return json.RawMessage(fmt.Sprintf("%d", val.Ordinal)), nil
	case ir.Scalar:
		return json.RawMessage(fmt.Sprintf("%d", int64(val))), nil
	case ir.Record:
		fields := val.Fields
		if fields == nil {
			fields = ir.Object{}
		}
		data, err := ir.MarshalCanonical(fields)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", shape, err)
		}
		return data, nil
	case ir.Ref:
		rc, err := c.reference(val.Type)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", shape, err)
		}
		blob, err := rc.Encode(val.Target)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", shape, err)
		}
		data, err := json.Marshal(blob)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", shape, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("encode %s: unsupported value %T", shape, v)
	}
}

// Decode implements Codec. Enumerations, records and references take
// their type name from the shape.
func (c *JSON) Decode(shape ir.Shape, raw json.RawMessage) (ir.Value, error) {
	trimmed := bytes.TrimSpace(raw)

	switch shape.Kind {
	case ir.ShapeNone:
		if len(trimmed) != 0 && !bytes.Equal(trimmed, null) {
			return nil, fmt.Errorf("decode %s: %w: expected null, got %s", shape, ErrShapeMismatch, trimmed)
		}
		return ir.Void{}, nil

	case ir.ShapeEnum, ir.ShapeScalar:
		n, err := decodeInt(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", shape, err)
		}
		if shape.Kind == ir.ShapeEnum {
			return ir.Enum{Type: shape.Type, Ordinal: n}, nil
		}
		return ir.Scalar(n), nil

	case ir.ShapeRecord:
		f, err := ir.UnmarshalField(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", shape, err)
		}
		obj, ok := f.(ir.Object)
		if !ok {
			return nil, fmt.Errorf("decode %s: %w: expected object", shape, ErrShapeMismatch)
		}
		return ir.Record{Type: shape.Type, Fields: obj}, nil

	case ir.ShapeRef:
		rc, err := c.reference(shape.Type)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", shape, err)
		}
		var blob []byte
		if err := json.Unmarshal(trimmed, &blob); err != nil {
			return nil, fmt.Errorf("decode %s: %w: %v", shape, ErrShapeMismatch, err)
		}
		target, err := rc.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", shape, err)
		}
		return ir.Ref{Type: shape.Type, Target: target}, nil

	default:
		return nil, fmt.Errorf("decode: unknown shape kind %d", uint8(shape.Kind))
	}
}

// EncodeAll encodes values against their shapes pairwise.
func EncodeAll(c Codec, shapes []ir.Shape, values []ir.Value) ([]json.RawMessage, error) {
	if len(shapes) != len(values) {
		return nil, fmt.Errorf("%w: %d values for %d shapes", ErrShapeMismatch, len(values), len(shapes))
	}
	out := make([]json.RawMessage, len(values))
	for i := range values {
		raw, err := c.Encode(shapes[i], values[i])
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = raw
	}
	return out, nil
}

// DecodeAll decodes payloads against their shapes pairwise.
func DecodeAll(c Codec, shapes []ir.Shape, raws []json.RawMessage) ([]ir.Value, error) {
	if len(shapes) != len(raws) {
		return nil, fmt.Errorf("%w: %d payloads for %d shapes", ErrShapeMismatch, len(raws), len(shapes))
	}
	out := make([]ir.Value, len(raws))
	for i := range raws {
		v, err := c.Decode(shapes[i], raws[i])
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// decodeInt accepts integral JSON numbers only. Fractional or exponent
// forms are a shape mismatch, not a truncation.
func decodeInt(raw []byte) (int64, error) {
	f, err := ir.UnmarshalField(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	n, ok := f.(ir.Int)
	if !ok {
		return 0, fmt.Errorf("%w: expected integer", ErrShapeMismatch)
	}
	return int64(n), nil
}

func kindOf(v ir.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
