// Package codec converts typed values to and from the byte slices kept by
// byte-only layers: the ToBytes and Codec adapters, and the remote providers.
//
// Codecs used for keys must be deterministic: equal values have to encode to
// equal bytes, or the same logical key would land in different entries.
// JSON (map keys are sorted) and CBOR built with deterministic=true qualify.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
