// SPDX-License-Identifier: MIT
//
// Package build carries the version metadata linked into the tuner binary.
// Values are injected with -ldflags, for example:
//
//	go build -ldflags "-X tuner/pkg/build.buildVersion=0.3.0 -X tuner/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds fall back to the defaults below.
package build

import "fmt"

// Description is the one-line summary shown by the command line help.
const Description = "Real-time instrument tuner with pitch detection"

// Info describes the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the info for the version command.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:    "tuner",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies the linker-provided values into the build info. Flags
// that were not set keep their defaults; the error lists the missing ones so
// release builds can refuse to start without them.
func Initialize() error {
	var missing []string

	set := func(dst *string, val, flag string) {
		if val == "" {
			missing = append(missing, flag)
			return
		}
		*dst = val
	}
	set(&buildInfo.Name, buildName, "BuildName")
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")

	if len(missing) > 0 {
		return fmt.Errorf("build flags not set: %v", missing)
	}
	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
