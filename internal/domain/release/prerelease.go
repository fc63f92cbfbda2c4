package release

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/cases"
)

// PreReleaseStrategy selects how a version string is classified.
type PreReleaseStrategy string

const (
	// PreReleaseMaven applies the Maven-style qualifier rules of IsPreRelease.
	PreReleaseMaven PreReleaseStrategy = "maven"
	// PreReleaseSemver treats any semantic version pre-release segment as unstable.
	PreReleaseSemver PreReleaseStrategy = "semver"
)

// preReleaseMarkers are matched case-insensitively anywhere in the version.
var preReleaseMarkers = []string{"-alpha", "-beta", "-RC", ".RC", "-M", ".M"}

// IsPreRelease reports whether version follows one of the well-known
// unstable version conventions: a -SNAPSHOT suffix, or an alpha, beta,
// release-candidate, or milestone qualifier.
func IsPreRelease(version string) bool {
	if strings.HasSuffix(version, "-SNAPSHOT") {
		return true
	}

	// Casers are stateful; build one per call.
	fold := cases.Fold()
	folded := fold.String(version)
	for _, marker := range preReleaseMarkers {
		if strings.Contains(folded, fold.String(marker)) {
			return true
		}
	}
	return false
}

// ClassifyPreRelease classifies version with the given strategy. Unknown
// strategies, and versions the semver strategy cannot parse, fall back to
// the Maven rules.
func ClassifyPreRelease(version string, strategy PreReleaseStrategy) bool {
	if strategy == PreReleaseSemver {
		if v, err := semver.NewVersion(version); err == nil {
			return v.Prerelease() != ""
		}
	}
	return IsPreRelease(version)
}

// ValidPreReleaseStrategy reports whether s names a known strategy.
func ValidPreReleaseStrategy(s string) bool {
	switch PreReleaseStrategy(s) {
	case "", PreReleaseMaven, PreReleaseSemver:
		return true
	default:
		return false
	}
}
