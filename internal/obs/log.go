package obs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var (
	base  = log.New(os.Stdout, "", 0)
	level atomic.Int32
)

const (
	levelDebug int32 = iota
	levelInfo
	levelWarn
	levelError
)

// EnableDebug globally enables debug logs.
func EnableDebug(v bool) {
	if v {
		level.Store(levelDebug)
		return
	}
	level.Store(levelInfo)
}

// SetLevel accepts debug, info, warn or error. Unknown values select info.
func SetLevel(s string) {
	switch strings.ToLower(s) {
	case "debug":
		level.Store(levelDebug)
	case "warn", "warning":
		level.Store(levelWarn)
	case "error":
		level.Store(levelError)
	default:
		level.Store(levelInfo)
	}
}

// SetOutput redirects all log lines to w.
func SetOutput(w io.Writer) { base.SetOutput(w) }

func init() { level.Store(levelInfo) }

type Fields map[string]any

func logWith(lvl int32, name, msg string, f Fields) {
	if lvl < level.Load() {
		return
	}
	out := make(Fields, len(f)+3)
	for k, v := range f {
		out[k] = v
	}
	out["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	out["level"] = name
	out["msg"] = msg
	b, err := json.Marshal(out)
	if err != nil {
		base.Printf("{\"level\":\"error\",\"msg\":\"log marshal failure\",\"err\":%q}", err.Error())
		return
	}
	base.Println(string(b))
}

func Debug(msg string, f Fields) { logWith(levelDebug, "debug", msg, f) }
func Info(msg string, f Fields)  { logWith(levelInfo, "info", msg, f) }
func Warn(msg string, f Fields)  { logWith(levelWarn, "warn", msg, f) }
func Error(msg string, f Fields) { logWith(levelError, "error", msg, f) }
