package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSamplingAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	h := New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), Options{
		SecondaryFailureEvery: 3,
	})

	for i := 0; i < 6; i++ {
		h.SecondaryFailure("get", errors.New("down"))
	}
	if n := strings.Count(buf.String(), "layercache.secondary_failure"); n != 2 {
		t.Fatalf("sampled lines = %d want 2\n%s", n, buf.String())
	}

	buf.Reset()
	h.StoreRejected("ristretto", "user:42:secret")
	out := buf.String()
	if strings.Contains(out, "user:42") || !strings.Contains(out, "backend=ristretto") {
		t.Fatalf("key not redacted: %s", out)
	}

	buf.Reset()
	h.IntegrityFailure("tag_mismatch")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("integrity failure not logged at error: %s", buf.String())
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	h := New(nil, Options{})
	h.SecondaryFailure("get", nil)
	h.IntegrityFailure("malformed")
	h.StoreRejected("b", "k")
}
