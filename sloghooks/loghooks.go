package sloghooks

import (
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"golang.org/x/crypto/sha3"

	"github.com/unkn0wn-root/layercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SecondaryFailureEvery uint64
	StoreRejectedEvery    uint64
	// Optional key redactor. Defaults to a SHA3-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	secondaryCtr atomic.Uint64
	rejectedCtr  atomic.Uint64
}

var _ layercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha3.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SecondaryFailure(op string, err error) {
	if h.l == nil || !sample(h.opts.SecondaryFailureEvery, &h.secondaryCtr) {
		return
	}
	h.l.Warn("layercache.secondary_failure",
		"op", op,
		"err", err)
}

func (h *Hooks) IntegrityFailure(reason string) {
	if h.l == nil {
		return
	}
	h.l.Error("layercache.integrity_failure",
		"reason", reason)
}

func (h *Hooks) StoreRejected(backend, key string) {
	if h.l == nil || !sample(h.opts.StoreRejectedEvery, &h.rejectedCtr) {
		return
	}
	h.l.Info("layercache.store_rejected",
		"backend", backend,
		"key", h.redact(key))
}
