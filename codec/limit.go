package codec

import "fmt"

// Limit wraps another codec and enforces size ceilings on both directions.
// MaxEncode rejects values whose encoding would not fit the target store
// (memcached defaults to 1 MiB items); MaxDecode protects against oversized
// payloads read back from a shared store. A limit <= 0 disables that check.
type Limit[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("encoded value too large: %d > %d", len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
