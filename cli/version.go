package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coder/serpent"

	"github.com/coder/fprint/buildinfo"
)

// versionCmd prints the fprint version
func versionCmd() *serpent.Command {
	handleHuman := func(inv *serpent.Invocation) error {
		var str strings.Builder
		_, _ = str.WriteString("fprint ")
		_, _ = str.WriteString(buildinfo.Version())
		buildTime, valid := buildinfo.Time()
		if valid {
			_, _ = str.WriteString(" " + buildTime.Format(time.UnixDate))
		}
		_, _ = str.WriteString("\n" + buildinfo.ExternalURL() + "\n")

		_, _ = fmt.Fprint(inv.Stdout, str.String())
		return nil
	}

	handleJSON := func(inv *serpent.Invocation) error {
		versionInfo := struct {
			Version     string `json:"version"`
			BuildTime   string `json:"build_time,omitempty"`
			ExternalURL string `json:"external_url"`
		}{
			Version:     buildinfo.Version(),
			ExternalURL: buildinfo.ExternalURL(),
		}
		if buildTime, ok := buildinfo.Time(); ok {
			versionInfo.BuildTime = buildTime.Format(time.RFC3339)
		}

		enc := json.NewEncoder(inv.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(versionInfo)
	}

	var outputJSON bool

	return &serpent.Command{
		Use:   "version",
		Short: "Show fprint version",
		Options: serpent.OptionSet{
			{
				Flag:        "json",
				Description: "Emit version information in machine-readable JSON format.",
				Value:       serpent.BoolOf(&outputJSON),
			},
		},
		Handler: func(inv *serpent.Invocation) error {
			if outputJSON {
				return handleJSON(inv)
			}
			return handleHuman(inv)
		},
	}
}
