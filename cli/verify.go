package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/xerrors"

	"github.com/coder/serpent"

	"github.com/coder/fprint"
	"github.com/coder/fprint/cli/cliui"
	"github.com/coder/fprint/fprintd"
	"github.com/coder/fprint/interrupt"
	"github.com/coder/fprint/verify"
)

// Lines printed on stdout for the two outcomes a caller can observe.
const (
	outputMatched    = "matched"
	outputNotMatched = "did not match"
)

// statusHints are printed while a scan is in progress.
var statusHints = map[string]string{
	fprintd.StatusRetryScan:         "Scan failed, try again.",
	fprintd.StatusSwipeTooShort:     "Swipe was too short, try again.",
	fprintd.StatusFingerNotCentered: "Finger was not centered, try again.",
	fprintd.StatusRemoveAndRetry:    "Remove your finger and try again.",
}

type verifyOutput struct {
	SessionID string `json:"session_id"`
	Matched   bool   `json:"matched"`
	Outcome   string `json:"outcome"`
	Status    string `json:"status,omitempty"`
	Signal    string `json:"signal,omitempty"`
	Error     string `json:"error,omitempty"`
}

// verifyCmd runs one verification. Once a device is claimed the command
// succeeds whatever the outcome; only setup failures are errors.
func (r *RootCmd) verifyCmd() *serpent.Command {
	var outputJSON bool

	return &serpent.Command{
		Use:        "verify",
		Short:      "Verify a fingerprint scan against the enrolled prints",
		Middleware: serpent.RequireNArgs(0),
		Options: serpent.OptionSet{
			{
				Flag:        "json",
				Description: "Emit the verification outcome in machine-readable JSON format.",
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

			opts := r.options(logger)
			opts.OnStatus = func(status string) {
				if hint, ok := statusHints[status]; ok {
					cliui.Hint(inv.Stderr, hint)
				}
			}

			res, err := fprint.Authenticate(ctx, opts)
			if err != nil {
				return err
			}

			diagnose(inv.Stderr, res)
			if outputJSON {
				out := verifyOutput{
					SessionID: res.SessionID.String(),
					Matched:   res.Matched(),
					Outcome:   res.Outcome.String(),
					Status:    res.Status,
					Signal:    interrupt.Name(res.Signal),
				}
				if res.Err != nil {
					out.Error = res.Err.Error()
				}
				enc := json.NewEncoder(inv.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			if res.Matched() {
				_, _ = fmt.Fprintln(inv.Stdout, outputMatched)
			} else {
				_, _ = fmt.Fprintln(inv.Stdout, outputNotMatched)
			}
			return nil
		},
	}
}

// diagnose explains a non-match that was not a plain mismatch.
func diagnose(w io.Writer, res verify.Result) {
	switch res.Outcome {
	case verify.OutcomeError:
		if xerrors.Is(res.Err, verify.ErrNoEnrolledPrints) {
			cliui.Error(w, "No fingerprints enrolled",
				"Enroll a finger with "+cliui.Keyword("fprintd-enroll")+" and try again.")
			return
		}
		cliui.Errorf(w, "Verification failed: %v", res.Err)
	case verify.OutcomeCancelled:
		if res.Signal != nil {
			cliui.Warnf(w, "Verification cancelled by %s", interrupt.Name(res.Signal))
			return
		}
		cliui.Warnf(w, "Verification cancelled: %v", res.Err)
	case verify.OutcomeLoopFault:
		cliui.Errorf(w, "Lost connection to fprintd: %v", res.Err)
	}
}
