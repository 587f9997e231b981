// Package version holds the build version of the cix binary.
package version

import "runtime"

// Overridden at build time:
// go build -ldflags "-X cix/internal/version.Version=0.4.0 -X cix/internal/version.Commit=abc123"
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version with a short commit suffix when known
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns every build detail, one per line
func Full() string {
	return "cix " + Version + "\n" +
		"commit: " + Commit + "\n" +
		"built:  " + BuildDate + "\n" +
		"go:     " + runtime.Version()
}
