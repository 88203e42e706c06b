package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const (
	// LevelTrace is more detailed than Debug, ie dumps of the messages.
	LevelTrace slog.Level = slog.LevelDebug - 4
	levelNone  slog.Level = math.MaxInt
)

/*
LogConfiguration is the configuration of the logger, usually loaded from
yaml file and then overridden by command line flags.
*/
type LogConfiguration struct {
	// Level is one of TRACE, DEBUG, INFO, WARN, ERROR, NONE. Offset
	// syntax of slog is supported too, ie "info+2".
	Level string `yaml:"level"`
	// Format is one of text, json, console, ecs.
	Format string `yaml:"format"`
	// OutputPath is file name or one of stdout, stderr, discard.
	OutputPath string `yaml:"outputPath"`
	// TimeFormat is Go time layout, "none" omits the time from the output.
	TimeFormat string `yaml:"timeFormat"`
}

/*
New creates logger based on the configuration. Output file (when used) is
opened in append mode and is never closed by the logger.
*/
func New(cfg *LogConfiguration) (*slog.Logger, error) {
	w, err := cfg.writer()
	if err != nil {
		return nil, err
	}
	h, err := cfg.handler(w)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

func (cfg *LogConfiguration) handler(w io.Writer) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level:     cfg.logLevel(),
		AddSource: cfg.logLevel() <= slog.LevelDebug,
	}
	timeFmt := formatTimeAttr(cfg.TimeFormat)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts.ReplaceAttr = composeAttrFmt(timeFmt, formatDataAttrAsJSON)
		return slog.NewTextHandler(w, opts), nil
	case "console":
		opts.ReplaceAttr = composeAttrFmt(formatTimeAttr(orDefault(cfg.TimeFormat, "15:04:05.0000")), formatDataAttrAsJSON)
		opts.AddSource = false
		return slog.NewTextHandler(w, opts), nil
	case "json":
		opts.ReplaceAttr = timeFmt
		return slog.NewJSONHandler(w, opts), nil
	case "ecs":
		opts.ReplaceAttr = composeAttrFmt(timeFmt, formatAttrECS)
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func (cfg *LogConfiguration) writer() (io.Writer, error) {
	switch strings.ToLower(cfg.OutputPath) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard", os.DevNull:
		return io.Discard, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0700); err != nil {
			return nil, fmt.Errorf("creating directory for log file: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // -rw-------
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, nil
	}
}

func (cfg *LogConfiguration) logLevel() slog.Level {
	switch strings.ToLower(cfg.OutputPath) {
	case "discard", os.DevNull:
		return levelNone
	}

	switch strings.ToUpper(cfg.Level) {
	case "":
		return slog.LevelInfo
	case "TRACE":
		return LevelTrace
	case "NONE":
		return levelNone
	case "WARNING":
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NOP returns logger which discards everything.
func NOP() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
