// Package cli implements the fprint command line.
package cli

import (
	"os"
	"time"

	"github.com/coder/quartz"

	"cdr.dev/slog/v3"
	"github.com/coder/serpent"

	"github.com/coder/fprint"
	"github.com/coder/fprint/cli/clilog"
	"github.com/coder/fprint/cli/cliui"
	"github.com/coder/fprint/interrupt"
	"github.com/coder/fprint/verify"
)

const envPrefix = "FPRINT_"

// RootCmd holds the global options. The exported fields replace the system
// bus, clock and signal handling; they are nil in production.
type RootCmd struct {
	Dial      fprint.Dialer
	Clock     quartz.Clock
	Interrupt func() *interrupt.Source

	busAddress  string
	pollCeiling time.Duration
	verbose     bool
	logHuman    string
	logJSON     string
	logJournal  bool
	logFilter   []string
}

func (r *RootCmd) Command() *serpent.Command {
	cmd := &serpent.Command{
		Use:   "fprint",
		Short: "Authenticate with the default fingerprint reader",
		Long: "fprint talks to the fprintd daemon over the system bus to check for a " +
			"fingerprint reader and verify a scan against the enrolled prints.",
		Children: []*serpent.Command{
			r.verifyCmd(),
			r.presentCmd(),
			versionCmd(),
		},
	}
	cmd.Options = serpent.OptionSet{
		{
			Flag:        "bus-address",
			Env:         envPrefix + "BUS_ADDRESS",
			Description: "D-Bus address to connect to instead of the system bus.",
			Value:       serpent.StringOf(&r.busAddress),
		},
		{
			Flag:        "poll-ceiling",
			Env:         envPrefix + "POLL_CEILING",
			Default:     verify.DefaultPollCeiling.String(),
			Description: "Longest single wait for daemon activity before polling again.",
			Value:       serpent.DurationOf(&r.pollCeiling),
		},
		{
			Flag:          "verbose",
			FlagShorthand: "v",
			Env:           envPrefix + "VERBOSE",
			Description:   "Output debug-level logs.",
			Value:         serpent.BoolOf(&r.verbose),
		},
		{
			Flag:        "log-human",
			Env:         envPrefix + "LOG_HUMAN",
			Default:     "/dev/stderr",
			Description: "Output human-readable logs to a given file.",
			Value:       serpent.StringOf(&r.logHuman),
		},
		{
			Flag:        "log-json",
			Env:         envPrefix + "LOG_JSON",
			Description: "Output JSON logs to a given file.",
			Value:       serpent.StringOf(&r.logJSON),
		},
		{
			Flag:        "log-journal",
			Env:         envPrefix + "LOG_JOURNAL",
			Description: "Send logs to the systemd journal.",
			Value:       serpent.BoolOf(&r.logJournal),
		},
		{
			Flag:        "log-filter",
			Env:         envPrefix + "LOG_FILTER",
			Description: "Filter debug logs by matching against a given regex. Use .* to match all debug logs.",
			Value:       serpent.StringArrayOf(&r.logFilter),
		},
	}
	return cmd
}

// Run executes the command line with the process arguments. Failing to set
// up a verification exits non-zero.
func (r *RootCmd) Run() {
	err := r.Command().Invoke().WithOS().Run()
	if err != nil {
		cliui.Error(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (r *RootCmd) logger(inv *serpent.Invocation) (slog.Logger, func(), error) {
	opts := []clilog.Option{
		clilog.WithHuman(r.logHuman),
		clilog.WithJSON(r.logJSON),
		clilog.WithFilter(r.logFilter...),
	}
	if r.verbose {
		opts = append(opts, clilog.WithVerbose())
	}
	if r.logJournal {
		opts = append(opts, clilog.WithJournal())
	}
	return clilog.New(opts...).Build(inv)
}

func (r *RootCmd) options(logger slog.Logger) fprint.Options {
	opts := fprint.Options{
		Logger:      logger,
		Clock:       r.Clock,
		Dial:        r.Dial,
		BusAddress:  r.busAddress,
		PollCeiling: r.pollCeiling,
	}
	if r.Interrupt != nil {
		opts.Interrupt = r.Interrupt()
	}
	return opts
}
