// Package version holds build metadata injected via ldflags.
package version

// Service is the name reported in logs and the health endpoint.
const Service = "aptsearch"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
