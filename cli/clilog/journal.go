package clilog

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/journal"

	"cdr.dev/slog/v3"
)

// JournalSink returns a sink writing to the systemd journal, or false when
// journald is not reachable.
func JournalSink() (slog.Sink, bool) {
	if !journal.Enabled() {
		return nil, false
	}
	return &journalSink{send: journal.Send}, true
}

type journalSink struct {
	send func(message string, priority journal.Priority, vars map[string]string) error
}

var _ slog.Sink = &journalSink{}

func (s *journalSink) LogEntry(_ context.Context, ent slog.SinkEntry) {
	vars := make(map[string]string, len(ent.Fields)+2)
	if len(ent.LoggerNames) > 0 {
		vars["LOGGER"] = strings.Join(ent.LoggerNames, ".")
	}
	if ent.Func != "" {
		vars["CODE_FUNC"] = ent.Func
	}
	for _, f := range ent.Fields {
		vars[journalKey(f.Name)] = fmt.Sprint(f.Value)
	}
	_ = s.send(ent.Message, journalPriority(ent.Level), vars)
}

func (*journalSink) Sync() {}

func journalPriority(level slog.Level) journal.Priority {
	switch level {
	case slog.LevelDebug:
		return journal.PriDebug
	case slog.LevelInfo:
		return journal.PriInfo
	case slog.LevelWarn:
		return journal.PriWarning
	case slog.LevelError:
		return journal.PriErr
	case slog.LevelCritical:
		return journal.PriCrit
	default:
		return journal.PriEmerg
	}
}

// journalKey converts a field name to a journal variable name, which may
// only contain uppercase letters, digits and underscores and must not
// start with an underscore.
func journalKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			_, _ = b.WriteRune(r)
		default:
			_, _ = b.WriteRune('_')
		}
	}
	key := strings.TrimLeft(b.String(), "_")
	if key == "" {
		return "FIELD"
	}
	return "SLOG_" + key
}
