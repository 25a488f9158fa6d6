package translatex

// Name is the project name used in CLI output.
const Name = "translatex"

// Version is the current release version.
const Version = "0.3.0"

// Build-time metadata, overridable with ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)
