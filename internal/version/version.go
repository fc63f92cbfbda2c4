// Package version resolves the ghrelease build version.
package version

import (
	"runtime/debug"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Dev is the version reported by builds without release metadata.
const Dev = "dev"

var readBuildInfo = debug.ReadBuildInfo

// Resolve returns the version to report. A version injected through
// ldflags wins; otherwise the module version recorded by "go install" is
// used. Valid versions are normalized with a "v" prefix.
func Resolve(ldflags string) string {
	v := strings.TrimSpace(ldflags)
	if v == "" || v == Dev {
		v = fromBuildInfo()
	}
	if v == "" {
		return Dev
	}
	if sv, err := semver.NewVersion(v); err == nil {
		return "v" + sv.String()
	}
	return v
}

func fromBuildInfo() string {
	info, ok := readBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return ""
	}
	return info.Main.Version
}
