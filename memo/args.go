package memo

import (
	"bytes"
	"encoding/json"
)

// Args is a call's arguments as seen by a KeyFunc: positional values plus
// optional named ones.
type Args struct {
	Pos []any
	Kw  map[string]any
}

// Of builds positional Args.
func Of(pos ...any) Args { return Args{Pos: pos} }

// MarshalJSON lays out Args as
//
//	[p0, p1, ...]                      no named arguments
//	{"**": {k: v, ...}}                named arguments only
//	{"*": [p0, ...], "**": {k: v}}     both
//
// with object keys sorted.
func (a Args) MarshalJSON() ([]byte, error) {
	pos := a.Pos
	if pos == nil {
		pos = []any{}
	}
	switch {
	case len(a.Kw) == 0:
		return canonical(pos)
	case len(a.Pos) == 0:
		return canonical(map[string]any{"**": a.Kw})
	default:
		return canonical(map[string]any{"*": pos, "**": a.Kw})
	}
}

// canonical is compact JSON without HTML escaping; maps marshal key-sorted.
func canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
