package version

import (
	"runtime/debug"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		ldflags   string
		buildInfo string
		want      string
	}{
		{"ldflags with prefix", "v1.4.0", "", "v1.4.0"},
		{"ldflags without prefix", "1.4.0", "", "v1.4.0"},
		{"ldflags prerelease", "2.0.0-rc.1", "", "v2.0.0-rc.1"},
		{"non semver kept", "nightly-20261019", "", "nightly-20261019"},
		{"dev falls back to build info", "dev", "v0.9.1", "v0.9.1"},
		{"empty falls back to build info", "", "v0.9.1", "v0.9.1"},
		{"devel build info", "dev", "(devel)", "dev"},
		{"no build info", "", "", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := readBuildInfo
			defer func() { readBuildInfo = orig }()
			readBuildInfo = func() (*debug.BuildInfo, bool) {
				if tt.buildInfo == "" {
					return nil, false
				}
				return &debug.BuildInfo{Main: debug.Module{Version: tt.buildInfo}}, true
			}

			if got := Resolve(tt.ldflags); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ldflags, got, tt.want)
			}
		})
	}
}
