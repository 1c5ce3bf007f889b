// Package version holds the CLI version, overridden at build time via
// -ldflags "-X github.com/WaywardWizard/cuenim/pkg/version.Version=...".
package version

// Version is the semantic version of the binary.
var Version = "0.0.1"
