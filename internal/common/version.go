package common

import (
	"fmt"
	"runtime"
)

// AppName is the product name shown in the banner, logs and outgoing requests
const AppName = "StockPulse"

// Build metadata, stamped with -ldflags "-X github.com/ternarybob/stockpulse/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the release version
func GetVersion() string {
	return Version
}

// GetFullVersion adds build, commit and toolchain to the version
func GetFullVersion() string {
	return fmt.Sprintf("%s (build %s, commit %s, %s)", Version, Build, GitCommit, runtime.Version())
}

// UserAgent identifies this build to upstream data providers
func UserAgent() string {
	return AppName + "/" + Version
}
