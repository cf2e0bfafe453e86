// Package version holds build metadata injected via -ldflags, e.g.
//
//	go build -ldflags "-X gallery/internal/version.Version=v1.0.0 -X gallery/internal/version.Commit=abc123"
package version

var (
	// Version is a SemVer tag like v1.2.3 for releases. Empty for dev builds.
	Version = ""
	// Commit is the short git SHA for the build.
	Commit = ""
	// Date is the UTC build timestamp in RFC3339 format.
	Date = ""
	// Dirty is "dirty" when the working tree had uncommitted changes, otherwise "clean".
	Dirty = ""
)

// String returns a compact version for display. Releases return Version;
// dev builds return "dev-<sha>", with a trailing "*" when dirty, or plain
// "dev" without metadata.
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		suffix := Commit
		if Dirty == "dirty" {
			suffix += "*"
		}
		return "dev-" + suffix
	}
	return "dev"
}

// Info is the build metadata served by the version endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Current returns the build metadata of the running binary.
func Current() Info {
	return Info{Version: String(), Commit: Commit, Date: Date}
}
