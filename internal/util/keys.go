package util

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ShortHash reduces s to a fixed 22-char URL-safe key: base64url of the first
// 16 bytes of SHA3-256(s).
func ShortHash(s string) string {
	sum := sha3.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

// SortedPairs renders m as "k=v" pairs in key order, formatting values with
// verb. Used for deterministic keyword-argument keys.
func SortedPairs(m map[string]any, verb string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + fmt.Sprintf(verb, m[k])
	}
	return out
}

// JoinKey joins non-empty parts with sep.
func JoinKey(sep string, parts ...string) string {
	s := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			s = append(s, p)
		}
	}
	return strings.Join(s, sep)
}
