// Package version holds build information injected with -ldflags.
package version

import "runtime/debug"

// Build information. Release builds set these with
// -ldflags "-X github.com/twhy/react-component-tagger/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	if Version != "dev" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return
	}

	Version = info.Main.Version
}

// String formats the build information on one line.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
