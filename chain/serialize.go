package chain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Binary is the serialized form of a non-text chain.
type Binary struct {
	Data    string `json:"data" cbor:"data"`
	Padding int    `json:"padding,omitempty" cbor:"padding,omitempty"`
}

// Serialize returns a value suitable for JSON or CBOR encoding: a plain
// string for text chains, a Binary otherwise.
func (c *Chain) Serialize() any {
	if c.text {
		s, _ := c.Text()
		return s
	}
	return Binary{
		Data:    base64.StdEncoding.EncodeToString(c.rawBytes()),
		Padding: c.padding,
	}
}

// MarshalJSON encodes the chain in its serialized form.
func (c *Chain) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Serialize())
}

// Extract rebuilds a chain from a value produced by Serialize, either as is
// or after a generic JSON/CBOR round trip.
func Extract(v any) (*Chain, error) {
	switch t := v.(type) {
	case nil:
		return Empty(), nil
	case *Chain:
		return t, nil
	case string:
		return FromString(t), nil
	case Binary:
		return extractBinary(t)
	case *Binary:
		return extractBinary(*t)
	case map[string]any:
		data, ok := t["data"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: binary content without data", ErrMalformed)
		}
		var padding int
		switch p := t["padding"].(type) {
		case nil:
		case float64:
			padding = int(p)
		case int:
			padding = p
		case int64:
			padding = int(p)
		case uint64:
			padding = int(p)
		default:
			return nil, fmt.Errorf("%w: padding of type %T", ErrMalformed, p)
		}
		return extractBinary(Binary{Data: data, Padding: padding})
	default:
		return nil, fmt.Errorf("%w: unsupported value of type %T", ErrMalformed, v)
	}
}

// ExtractJSON rebuilds a chain from its JSON serialized form.
func ExtractJSON(raw []byte) (*Chain, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Extract(v)
}

func extractBinary(b Binary) (*Chain, error) {
	data, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c, err := FromBits(data, b.Padding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}
