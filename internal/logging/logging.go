// Package logging provides the console logger used by every stage of a run.
// Records are printed as "[LEVEL] time message key=value ..." with the level
// colorized when the output is a terminal.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	levelDebug = color.New(color.FgHiBlack)
	levelInfo  = color.New(color.FgGreen)
	levelWarn  = color.New(color.FgYellow)
	levelError = color.New(color.FgRed)
	timeColor  = color.New(color.FgCyan)
)

// ParseLevel converts a string log level to a slog.Level.
// Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to stdout at the given level
func New(level string) *slog.Logger {
	return slog.New(NewHandler(os.Stdout, ParseLevel(level), detectColor(os.Stdout)))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(NewHandler(io.Discard, slog.LevelError+1, false))
}

func detectColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Handler is a slog.Handler producing single-line console output
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	colors bool
	prefix string // attrs bound with WithAttrs, already formatted
	group  string
}

// NewHandler creates a console handler
func NewHandler(w io.Writer, level slog.Leveler, colors bool) *Handler {
	return &Handler{
		mu:     &sync.Mutex{},
		w:      w,
		level:  level,
		colors: colors,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(h.colorize(levelColor(r.Level), formatLevel(r.Level)))
	b.WriteString("] ")
	if !r.Time.IsZero() {
		b.WriteString(h.colorize(timeColor, r.Time.Local().Format("2006-01-02 15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(r.Message)

	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, a := range attrs {
		writeAttr(&b, h.group, a)
	}
	clone := *h
	clone.prefix = h.prefix + b.String()
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *Handler) colorize(c *color.Color, text string) string {
	if !h.colors {
		return text
	}
	return c.Sprint(text)
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(formatValue(a.Value.String()))
}

func formatValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		return fmt.Sprintf("%q", v)
	}
	return v
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return levelError
	case level >= slog.LevelWarn:
		return levelWarn
	case level >= slog.LevelInfo:
		return levelInfo
	default:
		return levelDebug
	}
}

func formatLevel(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
