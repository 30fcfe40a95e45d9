package codec

import (
	"bytes"
	"encoding/gob"
)

// Gob encodes with encoding/gob. Handy for Go-only deployments storing structs
// with unexported-free fields; not suitable for keys (map order is not stable).
type Gob[V any] struct{}

func (Gob[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gob[V]) Decode(b []byte) (V, error) {
	var v V
	err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v)
	return v, err
}
