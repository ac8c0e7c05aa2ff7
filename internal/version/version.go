/*
Package version holds build information for tool-router.

Values are set via ldflags:

	-X github.com/khanglvm/tool-router/internal/version.Version=v0.3.0
	-X github.com/khanglvm/tool-router/internal/version.Commit=abc1234
	-X github.com/khanglvm/tool-router/internal/version.Date=2026-10-18

Unset values describe a development build.
*/
package version

// Build information.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build information as a value.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build information.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}

// String renders the info for --version output.
func (i Info) String() string {
	if i.Version == "dev" {
		return "dev (development build)"
	}
	return i.Version + " (commit: " + i.Commit + ", built: " + i.Date + ")"
}

// Short is the bare version, used in protocol handshakes.
func Short() string {
	return Version
}
