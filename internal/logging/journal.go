package logging

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// syslogIdentifier tags every journal entry for journalctl filtering.
const syslogIdentifier = "livid"

// journalHandler is a slog.Handler that sends records to the systemd
// journal with structured fields.
type journalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func newJournalHandler(level slog.Leveler) *journalHandler {
	return &journalHandler{level: level}
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := levelToPriority(r.Level)

	fields := map[string]string{
		"PRIORITY":          fmt.Sprintf("%d", priority),
		"SYSLOG_IDENTIFIER": syslogIdentifier,
	}

	for _, attr := range h.attrs {
		addField(fields, attr, h.groups)
	}
	r.Attrs(func(attr slog.Attr) bool {
		addField(fields, attr, h.groups)
		return true
	})

	return journal.Send(r.Message, priority, fields)
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &journalHandler{level: h.level, attrs: merged, groups: h.groups}
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(slices.Clone(h.groups), name)
	return &journalHandler{level: h.level, attrs: h.attrs, groups: groups}
}

func levelToPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addField flattens an slog attribute into journal field conventions:
// uppercase keys, groups joined with underscores.
func addField(fields map[string]string, attr slog.Attr, groups []string) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	key = strings.ToUpper(key)

	switch attr.Value.Kind() {
	case slog.KindGroup:
		nested := append(slices.Clone(groups), attr.Key)
		for _, a := range attr.Value.Group() {
			addField(fields, a, nested)
		}
	default:
		fields[key] = attr.Value.String()
	}
}

// journalAvailable reports whether the systemd journal accepts entries.
func journalAvailable() bool {
	return journal.Enabled()
}
