// Package version holds build-time metadata stamped via -ldflags, reported
// by the CLI's --version flag and folded into startup log lines.
package version

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String returns a single human-readable line combining all three fields.
func String() string {
	return Version + " (commit " + GitCommit + ", built " + BuildDate + ")"
}
