package cli

import (
	"encoding/json"
	"fmt"

	"golang.org/x/xerrors"

	"github.com/coder/serpent"

	"github.com/coder/fprint"
)

func (r *RootCmd) presentCmd() *serpent.Command {
	var outputJSON bool

	return &serpent.Command{
		Use:        "present",
		Short:      "Report whether a fingerprint reader is available",
		Middleware: serpent.RequireNArgs(0),
		Options: serpent.OptionSet{
			{
				Flag:        "json",
				Description: "Emit the result in machine-readable JSON format.",
				Value:       serpent.BoolOf(&outputJSON),
			},
		},
		Handler: func(inv *serpent.Invocation) error {
			ctx := inv.Context()
			logger, closeLog, err := r.logger(inv)
			if err != nil {
				return xerrors.Errorf("build logger: %w", err)
			}
			defer closeLog()

			ok, path, err := fprint.DevicePresent(ctx, r.options(logger))
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(inv.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Present bool   `json:"present"`
					Device  string `json:"device,omitempty"`
				}{
					Present: ok,
					Device:  string(path),
				})
			}
			if ok {
				_, _ = fmt.Fprintln(inv.Stdout, "present")
			} else {
				_, _ = fmt.Fprintln(inv.Stdout, "not present")
			}
			return nil
		},
	}
}
