// Package version provides build information for the binaries.
package version

import "fmt"

// Version is set at build time using -ldflags.
var Version = "dev"

// BuildTime is set at build time using -ldflags.
var BuildTime = "unknown"

// String returns the formatted version information for the named binary.
func String(binary string) string {
	return fmt.Sprintf("%s version %s (built %s)", binary, Version, BuildTime)
}
