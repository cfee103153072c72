package version

// Version is the current version of the openrange toolset.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/openrange-trading/openrange/internal/version.Version=1.2.3"
// The default value indicates a development build.
var Version = "v0.3.0"

// GetVersion returns the current version of the toolset.
func GetVersion() string {
	return Version
}
