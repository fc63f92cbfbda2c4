package config

import (
	"path/filepath"
	"strings"
	"testing"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Release.Tag = "v1.0.0"
	cfg.Release.Name = "1.0.0"
	cfg.Assets = []AssetSetConfig{{Directory: "target", Includes: []string{"*.zip"}}}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing tag", func(c *Config) { c.Release.Tag = "" }, "release.tag: required"},
		{"blank name", func(c *Config) { c.Release.Name = "  " }, "release.name: required"},
		{"unknown strategy", func(c *Config) { c.Release.PreReleaseStrategy = "calver" }, "release.prerelease_strategy"},
		{"empty asset directory", func(c *Config) { c.Assets[0].Directory = "" }, "assets[0].directory: required"},
		{"empty include", func(c *Config) { c.Assets[0].Includes = []string{""} }, "assets[0].includes[0]"},
		{"empty exclude", func(c *Config) { c.Assets[0].Excludes = []string{" "} }, "assets[0].excludes[0]"},
		{"dotted extension", func(c *Config) { c.MimeTypes = map[string]string{".zip": "application/zip"} }, "must not start with a dot"},
		{"empty content type", func(c *Config) { c.MimeTypes = map[string]string{"zip": ""} }, "content type must not be empty"},
		{"missing mime file", func(c *Config) { c.MimeTypesFile = "/nonexistent/mime.yaml" }, "mime_types_file: file does not exist"},
		{"negative retries", func(c *Config) { c.GitHub.Retry.Attempts = -1 }, "github.retry.attempts"},
		{"initial above max", func(c *Config) { c.GitHub.Retry.InitialWait = c.GitHub.Retry.MaxWait * 2 }, "initial_wait"},
		{"negative rate limit", func(c *Config) { c.GitHub.RateLimitRPM = -5 }, "rate_limit_rpm"},
		{"relative base url", func(c *Config) { c.GitHub.BaseURL = "ghe.local/api"; c.GitHub.UploadURL = "https://ghe.local/upload" }, "github.base_url: invalid URL"},
		{"credentials without identity", func(c *Config) { c.GitHub.CredentialsFile = "token.age" }, "github.identity_file"},
		{"unknown format", func(c *Config) { c.Output.Format = "yaml" }, "output.format"},
		{"unknown log level", func(c *Config) { c.Output.LogLevel = "trace" }, "output.log_level"},
		{"report dir missing", func(c *Config) { c.Output.ReportFile = "/nonexistent/dir/report.json" }, "output.report_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !rperrors.IsKind(err, rperrors.KindValidation) {
				t.Fatalf("Validate() error = %v, want validation error", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Release.Tag = ""
	cfg.Release.Name = ""
	cfg.Output.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"release.tag", "release.name", "output.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidator_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"both policies", func(c *Config) {
			c.Policy.FailIfReleaseExists = true
			c.Policy.DeleteExistingRelease = true
		}, "delete_existing_release: ignored"},
		{"description and file", func(c *Config) {
			c.Release.Description = "notes"
			c.Release.DescriptionFile = "NOTES.md"
		}, "description_file: ignored"},
		{"plaintext token", func(c *Config) { c.GitHub.Token = "ghp_abcdefghijklmnop" }, "plaintext token"},
		{"base url alone", func(c *Config) { c.GitHub.BaseURL = "https://ghe.local/api/v3/" }, "usually set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			v := NewValidator()
			if err := v.Validate(cfg); err != nil {
				t.Fatalf("Validate() error = %v, warnings must not fail", err)
			}
			warnings := v.Warnings()
			if len(warnings) != 1 || !strings.Contains(warnings[0], tt.want) {
				t.Errorf("Warnings() = %v, want one containing %q", warnings, tt.want)
			}
		})
	}
}

func TestValidate_MimeTypesFileShadowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mime.yaml")
	writeConfig(t, filepath.Dir(path), "mime.yaml", "zip: application/zip\n")

	cfg := validConfig()
	cfg.MimeTypes = map[string]string{"jar": "application/java-archive"}
	cfg.MimeTypesFile = path

	v := NewValidator()
	if err := v.Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if w := v.Warnings(); len(w) != 1 || !strings.Contains(w[0], "mime_types_file: ignored") {
		t.Errorf("Warnings() = %v", w)
	}
}

func TestValidationError_Error(t *testing.T) {
	e := &ValidationError{}
	if e.HasErrors() || e.HasWarnings() {
		t.Fatal("empty ValidationError should report nothing")
	}
	e.Addf("a: %s", "bad")
	e.Warnf("b: %d", 1)

	msg := e.Error()
	if !strings.Contains(msg, "Errors:\n  - a: bad") || !strings.Contains(msg, "Warnings:\n  - b: 1") {
		t.Errorf("Error() = %q", msg)
	}
}
