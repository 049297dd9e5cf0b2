// Package version reports build information. The variables are set with
// -ldflags "-X github.com/banshee-data/viewplan/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build information for -version output and logs.
func String() string {
	return fmt.Sprintf("viewplan %s (%s, built %s)", Version, GitSHA, BuildTime)
}
