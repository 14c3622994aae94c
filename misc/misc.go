// Package misc provides program identification helpers.
package misc

import (
	"runtime/debug"
)

const appName = "bxc"

// Values below are overwritten during the build.
var (
	version = "0.0.0-dev"
	gitHash = "unknown"
)

// GetAppName returns short program name used for logs, reports and temp files.
func GetAppName() string {
	return appName
}

// GetVersion returns program version set at build time.
func GetVersion() string {
	return version
}

// GetGitHash returns VCS revision - either set at build time or taken from
// the build info when program was built directly from the repository.
func GetGitHash() string {
	if gitHash != "unknown" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return gitHash
}
