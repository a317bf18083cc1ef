package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiCyan   = "\x1b[36m"
)

// consoleHandler renders compact single-line output for interactive use:
//
//	15:04:05 INF upload started component=transfer job_id=abc
type consoleHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level *slog.LevelVar
	color bool
	attrs []slog.Attr
	group string
}

func newConsoleHandler(w io.Writer, level *slog.LevelVar) *consoleHandler {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &consoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		color: color,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(h.levelLabel(record.Level))
	b.WriteByte(' ')
	b.WriteString(record.Message)

	for _, attr := range h.attrs {
		h.writeAttr(&b, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&b, attr)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *consoleHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	qualified := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		attr.Key = h.group + "." + attr.Key
		qualified = append(qualified, attr)
	}
	return qualified
}

func (h *consoleHandler) writeAttr(b *strings.Builder, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		prefix := attr.Key
		for _, nested := range attr.Value.Group() {
			if prefix != "" {
				nested.Key = prefix + "." + nested.Key
			}
			h.writeAttr(b, nested)
		}
		return
	}
	b.WriteByte(' ')
	if h.color {
		b.WriteString(ansiDim)
	}
	key := attr.Key
	if h.group != "" && !strings.Contains(key, ".") {
		key = h.group + "." + key
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(formatValue(attr.Value))
	if h.color {
		b.WriteString(ansiReset)
	}
}

func (h *consoleHandler) levelLabel(level slog.Level) string {
	var label, color string
	switch {
	case level >= slog.LevelError:
		label, color = "ERR", ansiRed
	case level >= slog.LevelWarn:
		label, color = "WRN", ansiYellow
	case level >= slog.LevelInfo:
		label, color = "INF", ansiCyan
	default:
		label, color = "DBG", ansiDim
	}
	if h.color {
		return color + label + ansiReset
	}
	return label
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	text := v.String()
	if v.Kind() == slog.KindString && strings.ContainsAny(text, " \t\"") {
		return fmt.Sprintf("%q", text)
	}
	return text
}
