package cli_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coder/fprint/buildinfo"
	"github.com/coder/fprint/cli"
	"github.com/coder/fprint/testutil"
)

func TestVersion(t *testing.T) {
	t.Parallel()

	t.Run("Human", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		var root cli.RootCmd
		inv := root.Command().Invoke("version")
		buf := new(bytes.Buffer)
		inv.Stdout = buf
		require.NoError(t, inv.WithContext(ctx).Run())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		require.True(t, strings.HasPrefix(lines[0], "fprint "+buildinfo.Version()), lines[0])
		require.Equal(t, buildinfo.ExternalURL(), lines[1])
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()
		ctx := testutil.Context(t, testutil.WaitShort)
		var root cli.RootCmd
		inv := root.Command().Invoke("version", "--json")
		buf := new(bytes.Buffer)
		inv.Stdout = buf
		require.NoError(t, inv.WithContext(ctx).Run())

		var out struct {
			Version     string `json:"version"`
			ExternalURL string `json:"external_url"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		require.Equal(t, buildinfo.Version(), out.Version)
		require.Equal(t, buildinfo.ExternalURL(), out.ExternalURL)
	})
}
