package layercache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// Layers call them on hot paths.
type Hooks interface {
	// The secondary tier of a resilient Two-Level cache failed and the
	// failure was absorbed. op ∈ {"get", "set", "delete", "contains"}.
	SecondaryFailure(op string, err error)

	// A stored value failed verification in the security layer.
	// reason ∈ {"tag_mismatch", "malformed", "decrypt"}.
	IntegrityFailure(reason string)

	// A store accepted the call but refused the write (admission/pressure).
	StoreRejected(backend, key string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SecondaryFailure(string, error) {}
func (NopHooks) IntegrityFailure(string)        {}
func (NopHooks) StoreRejected(string, string)   {}
