package buildinfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/mod/semver"
)

func TestFormatVersion(t *testing.T) {
	t.Parallel()

	t.Run("Devel", func(t *testing.T) {
		t.Parallel()
		v := formatVersion("")
		require.True(t, strings.HasPrefix(v, develPrefix), v)
		require.True(t, semver.IsValid(v), v)
	})

	t.Run("Tagged", func(t *testing.T) {
		t.Parallel()
		v := formatVersion("1.2.3")
		require.True(t, strings.HasPrefix(v, "v1.2.3"), v)
		require.Equal(t, "v1.2.3", semver.Canonical(v))
	})

	t.Run("LeadingV", func(t *testing.T) {
		t.Parallel()
		v := formatVersion("v2.0.0")
		require.Equal(t, "v2.0.0", semver.Canonical(v))
	})

	t.Run("KeepsBuildMetadata", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "v1.0.0+abc", formatVersion("1.0.0+abc"))
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()
		v := formatVersion("not-a-version")
		require.True(t, strings.HasPrefix(v, develPrefix), v)
	})
}

func TestVersion(t *testing.T) {
	t.Parallel()
	require.True(t, semver.IsValid(Version()), Version())
	require.True(t, IsDev())
	require.True(t, strings.HasPrefix(ExternalURL(), repo))
}
