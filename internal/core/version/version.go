// Package version provides information about the build version of the tools.
package version

// BuildInfo holds version information about a tool build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information for the named tool. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info(service string) BuildInfo {
	// Set via -ldflags "-X 'asdelete/internal/core/version.version=v1.3.1'
	// -X 'asdelete/internal/core/version.commit=abcd' -X 'asdelete/internal/core/version.date=2026-01-02'"
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders "name version" for usage banners
func (b BuildInfo) String() string { return b.Service + " " + b.Version }

var (
	version = "1.3"
	commit  = "none"
	date    = "unknown"
)
