// Package logging constructs the slog loggers used across roost.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Mode selects the handler style used when constructing a logger.
type Mode int

const (
	// ModeCLI renders terse, line-oriented records for terminal use.
	ModeCLI Mode = iota
	// ModeJSON renders records as JSON.
	ModeJSON
)

// New constructs a logger writing to w using the requested mode. A nil level
// defaults to slog.LevelInfo.
func New(mode Mode, w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		panic("logging: writer must not be nil")
	}
	if level == nil {
		level = slog.LevelInfo
	}

	if mode == ModeJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&lineHandler{writer: w, level: level})
}

// NewCLI constructs a logger emitting human-readable records.
func NewCLI(w io.Writer, level slog.Leveler) *slog.Logger {
	return New(ModeCLI, w, level)
}

// NewJSON constructs a logger emitting structured JSON records.
func NewJSON(w io.Writer, level slog.Leveler) *slog.Logger {
	return New(ModeJSON, w, level)
}

// Ensure returns logger, or the process default when logger is nil.
func Ensure(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// lineHandler writes records as "LEVEL time | message key=value ...".
type lineHandler struct {
	writer io.Writer
	level  slog.Leveler

	mu    sync.Mutex
	attrs []slog.Attr
	group string
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	minimum := slog.LevelInfo
	if h.level != nil {
		minimum = h.level.Level()
	}
	return level >= minimum
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var line strings.Builder
	line.WriteString(strings.ToUpper(record.Level.String()))
	line.WriteByte(' ')
	line.WriteString(timestamp.UTC().Format(time.RFC3339))
	line.WriteString(" | ")
	line.WriteString(record.Message)

	for _, attr := range h.attrs {
		writeAttr(&line, h.group, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&line, h.group, attr)
		return true
	})
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, line.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	combined = append(combined, h.attrs...)
	combined = append(combined, attrs...)
	return &lineHandler{writer: h.writer, level: h.level, attrs: combined, group: h.group}
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	prefix := name
	if h.group != "" {
		prefix = h.group + "." + name
	}
	return &lineHandler{writer: h.writer, level: h.level, attrs: h.attrs, group: prefix}
}

func writeAttr(line *strings.Builder, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		nested := attr.Key
		if prefix != "" {
			nested = prefix + "." + attr.Key
		}
		for _, member := range value.Group() {
			writeAttr(line, nested, member)
		}
		return
	}

	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	line.WriteByte(' ')
	line.WriteString(key)
	line.WriteByte('=')
	line.WriteString(formatValue(value))
}

func formatValue(value slog.Value) string {
	var text string
	switch value.Kind() {
	case slog.KindTime:
		text = value.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			text = err.Error()
			break
		}
		text = fmt.Sprint(value.Any())
	default:
		text = value.String()
	}

	if strings.ContainsAny(text, " \t\"") {
		return fmt.Sprintf("%q", text)
	}
	return text
}
