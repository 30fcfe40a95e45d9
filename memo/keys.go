package memo

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/layercache/internal/util"
)

// KeyFunc derives the cache key of a call. It must be deterministic: equal
// arguments give equal keys.
type KeyFunc func(Args) (string, error)

// DefaultKey renders arguments in Go syntax: positional values first, then
// named ones in key order. Cheap, but only stable for values whose %#v form is.
func DefaultKey(a Args) (string, error) {
	parts := make([]string, 0, len(a.Pos)+len(a.Kw))
	for _, p := range a.Pos {
		parts = append(parts, fmt.Sprintf("%#v", p))
	}
	parts = append(parts, util.SortedPairs(a.Kw, "%#v")...)
	return "(" + strings.Join(parts, ", ") + ")", nil
}

// JSONKey is the canonical JSON form of Args (see Args.MarshalJSON).
// Suitable for persistent and shared caches.
func JSONKey(a Args) (string, error) {
	b, err := a.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// HashKey reduces JSONKey to a fixed 22-char URL-safe string.
func HashKey(a Args) (string, error) {
	s, err := JSONKey(a)
	if err != nil {
		return "", err
	}
	return util.ShortHash(s), nil
}

// FuncKey prefixes inner's keys with name, so functions sharing one
// namespace do not collide.
func FuncKey(name string, inner KeyFunc) KeyFunc {
	return func(a Args) (string, error) {
		k, err := inner(a)
		if err != nil {
			return "", err
		}
		return util.JoinKey(":", name, k), nil
	}
}
