// Package version provides build version information for the binaries.
package version

import "fmt"

// Version is the application version, set at build time via -ldflags.
var Version = "dev"

// BuildTime is when the binary was built, set at build time via -ldflags.
var BuildTime = "unknown"

// String returns the formatted version line.
func String() string {
	return fmt.Sprintf("caseforge version %s (built %s)", Version, BuildTime)
}
