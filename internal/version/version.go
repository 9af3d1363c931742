// Package version holds the build-time version string, set via
// -ldflags "-X .../internal/version.Value=..." in release builds.
package version

var Value = "dev"
