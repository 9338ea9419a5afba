// Package version holds the build version string.
package version

// Version is the application version, overridable at build time via
// -ldflags "-X shramsetu/internal/version.Version=...".
var Version = "dev"
