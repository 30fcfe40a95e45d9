// Package glog logs through golang/glog. glog has no debug severity: Debug
// lines go to Info at verbosity Verbosity (default 1).
package glog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/glog"

	"github.com/unkn0wn-root/layercache"
)

var _ layercache.Logger = Logger{}

type Logger struct {
	Verbosity glog.Level
}

func (l Logger) Debug(msg string, f layercache.Fields) {
	v := l.Verbosity
	if v == 0 {
		v = 1
	}
	if glog.V(v) {
		glog.InfoDepth(1, line(msg, f))
	}
}
func (Logger) Info(msg string, f layercache.Fields)  { glog.InfoDepth(1, line(msg, f)) }
func (Logger) Warn(msg string, f layercache.Fields)  { glog.WarningDepth(1, line(msg, f)) }
func (Logger) Error(msg string, f layercache.Fields) { glog.ErrorDepth(1, line(msg, f)) }

// line renders msg followed by fields as sorted k=v pairs.
func line(msg string, f layercache.Fields) string {
	if len(f) == 0 {
		return msg
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, f[k])
	}
	return b.String()
}
