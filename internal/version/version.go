// Package version reports the zkdash build version.
//
// CommitHash is set with -ldflags at build time.
package version

import (
	"fmt"
	"strings"
)

// CommitHash is the git commit of this build.
var CommitHash string

// Characters allowed in a semver pre-release identifier.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0

	appPreRelease = "dev"
)

// Version returns the semantic version, e.g. "0.1.0-dev".
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if pre := normalize(appPreRelease); pre != "" {
		v += "-" + pre
	}
	return v
}

// RichVersion returns "zkdash <version>" plus the commit hash when known.
func RichVersion() string {
	out := "zkdash " + Version()
	if h := strings.TrimSpace(CommitHash); h != "" {
		out += " commit_hash=" + h
	}
	return out
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(semanticAlphabet, r) {
			return r
		}
		return -1
	}, s)
}
