package clilog

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/coreos/go-systemd/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"cdr.dev/slog/v3"
	"github.com/coder/serpent"
)

func invocation() (*serpent.Invocation, *bytes.Buffer, *bytes.Buffer) {
	inv := (&serpent.Command{}).Invoke()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	inv.Stdout = stdout
	inv.Stderr = stderr
	return inv, stdout, stderr
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	t.Run("NoSinks", func(t *testing.T) {
		t.Parallel()
		inv, stdout, stderr := invocation()
		logger, closeLog, err := New().Build(inv)
		require.NoError(t, err)
		defer closeLog()

		logger.Error(context.Background(), "dropped")
		require.Empty(t, stdout.String())
		require.Empty(t, stderr.String())
	})

	t.Run("HumanStderr", func(t *testing.T) {
		t.Parallel()
		inv, stdout, stderr := invocation()
		logger, closeLog, err := New(WithHuman("/dev/stderr")).Build(inv)
		require.NoError(t, err)

		logger.Info(context.Background(), "device claimed", slog.F("device", "/net/reactivated/Fprint/Device/0"))
		logger.Debug(context.Background(), "not shown")
		closeLog()

		require.Empty(t, stdout.String())
		require.Contains(t, stderr.String(), "device claimed")
		require.Contains(t, stderr.String(), "/net/reactivated/Fprint/Device/0")
		require.NotContains(t, stderr.String(), "not shown")
	})

	t.Run("Verbose", func(t *testing.T) {
		t.Parallel()
		inv, stdout, _ := invocation()
		logger, closeLog, err := New(WithHuman("/dev/stdout"), WithVerbose()).Build(inv)
		require.NoError(t, err)

		logger.Debug(context.Background(), "waiting for status")
		closeLog()
		require.Contains(t, stdout.String(), "waiting for status")
	})

	t.Run("JSONFile", func(t *testing.T) {
		t.Parallel()
		inv, _, _ := invocation()
		loc := filepath.Join(t.TempDir(), "fprint.json")
		logger, closeLog, err := New(WithJSON(loc)).Build(inv)
		require.NoError(t, err)

		logger.Info(context.Background(), "verification finished", slog.F("outcome", "matched"))
		closeLog()

		data, err := os.ReadFile(loc)
		require.NoError(t, err)
		require.Contains(t, string(data), `"verification finished"`)
		require.Contains(t, string(data), `"outcome":"matched"`)
	})

	t.Run("Filter", func(t *testing.T) {
		t.Parallel()
		inv, stdout, _ := invocation()
		logger, closeLog, err := New(WithHuman("/dev/stdout"), WithFilter("device")).Build(inv)
		require.NoError(t, err)

		logger.Named("device").Debug(context.Background(), "claim sent")
		logger.Named("verify").Debug(context.Background(), "status dropped")
		logger.Named("verify").Info(context.Background(), "always shown")
		closeLog()

		out := stdout.String()
		assert.Contains(t, out, "claim sent")
		assert.NotContains(t, out, "status dropped")
		assert.Contains(t, out, "always shown")
	})

	t.Run("BadFilter", func(t *testing.T) {
		t.Parallel()
		inv, _, _ := invocation()
		_, _, err := New(WithHuman("/dev/stdout"), WithFilter("(")).Build(inv)
		require.Error(t, err)
	})
}

func TestLumberjackWriteCloseFixer(t *testing.T) {
	t.Parallel()

	w := &LumberjackWriteCloseFixer{Writer: &lumberjack.Logger{
		Filename: filepath.Join(t.TempDir(), "fprint.log"),
	}}
	_, err := w.Write([]byte("before\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("after\n"))
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

type journalEntry struct {
	message  string
	priority journal.Priority
	vars     map[string]string
}

func TestJournalSink(t *testing.T) {
	t.Parallel()

	var got []journalEntry
	sink := &journalSink{
		send: func(message string, priority journal.Priority, vars map[string]string) error {
			got = append(got, journalEntry{message, priority, vars})
			return nil
		},
	}
	logger := slog.Make(sink).Leveled(slog.LevelDebug)
	logger.Named("device").Warn(context.Background(), "release failed",
		slog.F("device", "/net/reactivated/Fprint/Device/0"),
		slog.F("dbus-error", "net.reactivated.Fprint.Error.ClaimDevice"),
	)

	require.Len(t, got, 1)
	require.Equal(t, "release failed", got[0].message)
	require.Equal(t, journal.PriWarning, got[0].priority)
	require.Equal(t, "device", got[0].vars["LOGGER"])
	require.Equal(t, "/net/reactivated/Fprint/Device/0", got[0].vars["SLOG_DEVICE"])
	require.Equal(t, "net.reactivated.Fprint.Error.ClaimDevice", got[0].vars["SLOG_DBUS_ERROR"])
}

func TestJournalPriority(t *testing.T) {
	t.Parallel()

	for level, want := range map[slog.Level]journal.Priority{
		slog.LevelDebug:    journal.PriDebug,
		slog.LevelInfo:     journal.PriInfo,
		slog.LevelWarn:     journal.PriWarning,
		slog.LevelError:    journal.PriErr,
		slog.LevelCritical: journal.PriCrit,
		slog.LevelFatal:    journal.PriEmerg,
	} {
		assert.Equal(t, want, journalPriority(level), level.String())
	}
}

func TestJournalKey(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]string{
		"device":      "SLOG_DEVICE",
		"session_id":  "SLOG_SESSION_ID",
		"dbus-error":  "SLOG_DBUS_ERROR",
		"_private":    "SLOG_PRIVATE",
		"Outcome2":    "SLOG_OUTCOME2",
		"---":         "FIELD",
		"":            "FIELD",
	} {
		assert.Equal(t, want, journalKey(name), name)
	}
}
