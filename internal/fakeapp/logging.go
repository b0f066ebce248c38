package fakeapp

import (
	"log"
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the fake app.
func SetLogger(l zerolog.Logger) { zlog = &l }

// streamLineWriter logs complete event stream lines.
type streamLineWriter struct {
	eventID string
	buf     []byte
}

func (lw *streamLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := indexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(lw.buf[:idx])
		if len(line) > 0 {
			if zlog != nil {
				zlog.Debug().Str("event_id", lw.eventID).Msg("sse> " + line)
			} else {
				log.Printf("sse> %s", line)
			}
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("GRADIO_FAKE_LOG_LEVEL"))

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logRequest writes one access line when the request's level allows it.
func logRequest(r *http.Request, status int, msg string) {
	lvl := requestLogLevel(r)
	if lvl < LevelInfo && !(lvl == LevelError && status >= 400) {
		return
	}
	if zlog != nil {
		zlog.Info().Str("path", r.URL.Path).Int("status", status).Msg(msg)
		return
	}
	log.Printf("%s path=%s status=%d", msg, r.URL.Path, status)
}
