package version

import "github.com/fatih/color"

// These variables are overridden at build time via -ldflags

var (
	versionColor = color.New(color.FgCyan, color.Bold)

	// Version is the semantic version of the CLI
	Version = "0.1.0-dev"

	// Commit is the git commit the binary was built from
	Commit = "none"

	// BuildTime is the build timestamp in RFC 3339
	BuildTime = "unknown"
)

// String renders the version line shown by --version and the version command
func String() string {
	return versionColor.Sprint(Version) + " (" + Commit + ") " + BuildTime
}
