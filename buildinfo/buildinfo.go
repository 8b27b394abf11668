// Package buildinfo reports the version of the fprint binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"
)

const repo = "https://github.com/coder/fprint"

var (
	buildInfo      *debug.BuildInfo
	buildInfoValid bool
	readBuildInfo  sync.Once

	externalURL     string
	readExternalURL sync.Once

	version     string
	readVersion sync.Once

	// Injected with ldflags at build!
	tag string
)

const develPrefix = "v0.0.0-devel"

// Version returns the semantic version of the build.
// Use golang.org/x/mod/semver to compare versions.
func Version() string {
	readVersion.Do(func() {
		version = formatVersion(tag)
	})
	return version
}

func formatVersion(tag string) string {
	revision, valid := revision()
	if valid && len(revision) >= 7 {
		revision = "+" + revision[:7]
	} else {
		revision = ""
	}
	if tag == "" {
		return develPrefix + revision
	}
	v := "v" + strings.TrimPrefix(tag, "v")
	if !semver.IsValid(v) {
		return develPrefix + revision
	}
	if semver.Build(v) == "" {
		v += revision
	}
	return v
}

// IsDev returns true if this is a development build.
func IsDev() bool {
	return strings.HasPrefix(Version(), develPrefix)
}

// ExternalURL returns a URL referencing the current fprint version.
// For production builds, this will link directly to a release.
// For development builds, this will link to a commit.
func ExternalURL() string {
	readExternalURL.Do(func() {
		if !IsDev() {
			externalURL = fmt.Sprintf("%s/releases/tag/%s", repo, semver.Canonical(Version()))
			return
		}
		revision, valid := revision()
		if !valid {
			externalURL = repo
			return
		}
		externalURL = fmt.Sprintf("%s/commit/%s", repo, revision)
	})
	return externalURL
}

// Time returns when the Git revision was published.
func Time() (time.Time, bool) {
	value, valid := find("vcs.time")
	if !valid {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// revision returns the Git hash of the build.
func revision() (string, bool) {
	return find("vcs.revision")
}

func find(key string) (string, bool) {
	readBuildInfo.Do(func() {
		buildInfo, buildInfoValid = debug.ReadBuildInfo()
	})
	if !buildInfoValid {
		return "", false
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key != key {
			continue
		}
		return setting.Value, true
	}
	return "", false
}
