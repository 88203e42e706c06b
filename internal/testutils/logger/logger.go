/*
Package logger provides loggers for tests. Output of the logger goes to
the test log (t.Log) so it is shown only for failing tests or when running
tests in verbose mode.

Environment variable PHOTON_TEST_LOG_LEVEL can be used to change the
default level (DEBUG) of the test loggers.
*/
package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/photon-ccm/photon/logger"
)

// New returns logger for test "t" with level set by environment or DEBUG.
func New(t testing.TB) *slog.Logger {
	return NewLvl(t, envLevel(slog.LevelDebug))
}

func NewLvl(t testing.TB, level slog.Level) *slog.Logger {
	return slog.New(&testHandler{t: t, level: level, mu: &sync.Mutex{}, buf: &bytes.Buffer{}})
}

// NOP returns logger which discards everything.
func NOP() *slog.Logger {
	return logger.NOP()
}

/*
LoggerBuilder returns logger factory which ignores the configuration and
returns test logger.
*/
func LoggerBuilder(t testing.TB) func(*logger.LogConfiguration) (*slog.Logger, error) {
	return func(*logger.LogConfiguration) (*slog.Logger, error) { return New(t), nil }
}

func envLevel(def slog.Level) slog.Level {
	v := os.Getenv("PHOTON_TEST_LOG_LEVEL")
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return lvl
}

/*
testHandler formats records with slog text handler into buffer and writes
the result into test log.
*/
type testHandler struct {
	t     testing.TB
	level slog.Level
	attrs []slog.Attr
	group string

	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Reset()

	var th slog.Handler = slog.NewTextHandler(h.buf, &slog.HandlerOptions{
		Level: h.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05.0000"))
			}
			return a
		},
	})
	if h.group != "" {
		th = th.WithGroup(h.group)
	}
	if len(h.attrs) != 0 {
		th = th.WithAttrs(h.attrs)
	}
	if err := th.Handle(ctx, r); err != nil {
		return err
	}
	h.t.Helper()
	h.t.Log(string(bytes.TrimRight(h.buf.Bytes(), "\n")))
	return nil
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

func (h *testHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.group = name
	return &c
}
