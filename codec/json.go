package codec

import "encoding/json"

// JSON encodes with encoding/json. Output is canonical for maps (sorted keys)
// and structs (declaration order), so it is safe for keys as well as values.
type JSON[V any] struct{}

var _ Codec[map[string]int] = JSON[map[string]int]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
