//go:build go1.21

package slog

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/unkn0wn-root/layercache"
)

func TestSlogLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug}))}

	l.Info("debug cache init", layercache.Fields{"cache": "sessions"})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["msg"] != "debug cache init" || got["cache"] != "sessions" {
		t.Fatalf("line = %v", got)
	}
}
