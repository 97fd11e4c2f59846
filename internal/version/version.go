package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in version output and the download User-Agent.
const Name = "beer-hall"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and host platform.
func Full() string {
	return fmt.Sprintf("%s %s (commit: %s, built at: %s, %s/%s)",
		Name, Version, Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies artifact downloads, e.g. "beer-hall/0.1.0".
func UserAgent() string {
	return Name + "/" + Version
}
