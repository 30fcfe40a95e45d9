package codec

import (
	"bytes"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type point struct {
	X int    `json:"x" msgpack:"x" cbor:"x"`
	Y int    `json:"y" msgpack:"y" cbor:"y"`
	L string `json:"l" msgpack:"l" cbor:"l"`
}

func roundTrip[V comparable](t *testing.T, name string, c Codec[V], v V) {
	t.Helper()
	b, err := c.Encode(v)
	if err != nil {
		t.Fatalf("%s encode: %v", name, err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("%s decode: %v", name, err)
	}
	if got != v {
		t.Fatalf("%s: got %+v want %+v", name, got, v)
	}
}

func TestStructCodecs(t *testing.T) {
	v := point{X: 1, Y: -2, L: "héllo"}
	roundTrip[point](t, "json", JSON[point]{}, v)
	roundTrip[point](t, "gob", Gob[point]{}, v)
	roundTrip[point](t, "msgpack", Msgpack[point]{}, v)
	roundTrip[point](t, "cbor", MustCBOR[point](false), v)
	roundTrip[point](t, "cbor-det", MustCBOR[point](true), v)
	roundTrip[string](t, "string", String{}, "abc")
}

func TestJSONMapKeysAreSorted(t *testing.T) {
	b, err := JSON[map[string]int]{}.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":1,"b":2,"c":3}` {
		t.Fatalf("non-canonical json: %s", b)
	}
}

func TestDeterministicCBORStableForMaps(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	m := map[string]int{"zeta": 1, "alpha": 2, "mid": 3, "b": 4}
	first, err := c.Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, _ := c.Encode(m)
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic cbor produced different bytes")
		}
	}
}

func TestBytesIdentity(t *testing.T) {
	in := []byte{0, 1, 2}
	out, _ := Bytes{}.Encode(in)
	back, _ := Bytes{}.Decode(out)
	if !bytes.Equal(in, back) {
		t.Fatalf("bytes codec changed payload")
	}
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxEncode: 4, MaxDecode: 3}
	if _, err := c.Encode("abcd"); err != nil {
		t.Fatalf("at limit should pass: %v", err)
	}
	if _, err := c.Encode("abcde"); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected encode limit error, got %v", err)
	}
	if _, err := c.Decode([]byte("abcd")); err == nil {
		t.Fatalf("expected decode limit error")
	}
	unlimited := Limit[string]{Inner: String{}}
	if _, err := unlimited.Encode(strings.Repeat("x", 1<<16)); err != nil {
		t.Fatalf("disabled limit: %v", err)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("payload"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.GetValue() != "payload" {
		t.Fatalf("got %q", got.GetValue())
	}
}
