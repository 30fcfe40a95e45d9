// Package layercache builds caches out of small layers stacked on a store.
//
// Every component implements Cache[K, V]. Leaf adapters (see provider/...)
// translate the contract into calls on a backing store; wrapper layers own
// one inner Cache and transform keys, values or bookkeeping on the way
// through:
//
//   - Prefixed, NewAutoPrefixed: namespace keys of a shared store
//   - Stats: read, hit and miss counters (Statser)
//   - Debug: log every operation through a Logger
//   - Locked: serialize operations behind one lock
//   - TwoLevel: fast primary over a larger secondary, optionally resilient
//   - ToBytes, Bytes, Encoded: move between typed and byte-only layers
//
// Byte-only layers live in their own packages: encrypt hides keys and
// values, memo memoizes functions, tracing and metrics export activity.
//
// A typical stack:
//
//	store, _ := memcached.Dial(memcached.Config{}, "127.0.0.1:11211")
//	enc, _ := encrypt.New(layercache.NewBytes(store), encrypt.Options{Secret: secret})
//	users := layercache.NewStats(layercache.NewPrefixed(
//		layercache.NewToBytes[string, User](enc, layercache.ToBytesOptions[string, User]{}), "users."))
//
// Misses are reported as ErrNotFound; store failures as *BackendError;
// bad options and unencodable keys or values as *ConfigError; tampered or
// undecryptable entries as *IntegrityError.
package layercache
