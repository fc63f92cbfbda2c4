package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}
	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning to the validation error.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: &ValidationError{},
	}
}

// Validate validates the configuration. Warnings do not fail validation;
// read them with Warnings afterwards.
func (v *Validator) Validate(cfg *Config) error {
	v.validateRelease(cfg.Release)
	v.validateAssets(cfg.Assets)
	v.validateMimeTypes(cfg.MimeTypes, cfg.MimeTypesFile)
	v.validatePolicy(cfg.Policy)
	v.validateGitHub(cfg.GitHub)
	v.validateOutput(cfg.Output)

	if v.errors.HasErrors() {
		return rperrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

// Warnings returns the warnings collected by the last Validate call.
func (v *Validator) Warnings() []string {
	return slices.Clone(v.errors.Warnings)
}

func (v *Validator) validateRelease(cfg ReleaseConfig) {
	if strings.TrimSpace(cfg.Tag) == "" {
		v.errors.Addf("release.tag: required")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		v.errors.Addf("release.name: required")
	}

	validStrategies := []string{"maven", "semver"}
	if !slices.Contains(validStrategies, cfg.PreReleaseStrategy) {
		v.errors.Addf("release.prerelease_strategy: must be one of %v, got %q", validStrategies, cfg.PreReleaseStrategy)
	}

	if cfg.Description != "" && cfg.DescriptionFile != "" {
		v.errors.Warnf("release.description_file: ignored because release.description is set")
	}
}

func (v *Validator) validateAssets(sets []AssetSetConfig) {
	for i, set := range sets {
		if strings.TrimSpace(set.Directory) == "" {
			v.errors.Addf("assets[%d].directory: required", i)
		}
		for j, p := range set.Includes {
			if strings.TrimSpace(p) == "" {
				v.errors.Addf("assets[%d].includes[%d]: pattern must not be empty", i, j)
			}
		}
		for j, p := range set.Excludes {
			if strings.TrimSpace(p) == "" {
				v.errors.Addf("assets[%d].excludes[%d]: pattern must not be empty", i, j)
			}
		}
	}
}

func (v *Validator) validateMimeTypes(types map[string]string, file string) {
	for ext, typ := range types {
		if ext == "" {
			v.errors.Addf("mime_types: extension must not be empty")
			continue
		}
		if strings.HasPrefix(ext, ".") {
			v.errors.Addf("mime_types.%s: extension must not start with a dot", ext)
		}
		if strings.TrimSpace(typ) == "" {
			v.errors.Addf("mime_types.%s: content type must not be empty", ext)
		}
	}

	if file != "" {
		if len(types) > 0 {
			v.errors.Warnf("mime_types_file: ignored because mime_types is set")
		}
		if _, err := os.Stat(file); os.IsNotExist(err) {
			v.errors.Addf("mime_types_file: file does not exist: %s", file)
		}
	}
}

func (v *Validator) validatePolicy(cfg PolicyConfig) {
	if cfg.FailIfReleaseExists && cfg.DeleteExistingRelease {
		v.errors.Warnf("policy.delete_existing_release: ignored because fail_if_release_exists is set")
	}
}

func (v *Validator) validateGitHub(cfg GitHubConfig) {
	if cfg.Retry.Attempts < 0 {
		v.errors.Addf("github.retry.attempts: must be non-negative, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.InitialWait < 0 || cfg.Retry.MaxWait < 0 {
		v.errors.Addf("github.retry: wait durations must be non-negative")
	}
	if cfg.Retry.MaxWait > 0 && cfg.Retry.InitialWait > cfg.Retry.MaxWait {
		v.errors.Addf("github.retry.initial_wait: must not exceed max_wait")
	}
	if cfg.RateLimitRPM < 0 {
		v.errors.Addf("github.rate_limit_rpm: must be non-negative, got %d", cfg.RateLimitRPM)
	}

	for name, raw := range map[string]string{"github.base_url": cfg.BaseURL, "github.upload_url": cfg.UploadURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			v.errors.Addf("%s: invalid URL: %s", name, raw)
		}
	}
	if (cfg.BaseURL == "") != (cfg.UploadURL == "") {
		v.errors.Warnf("github: base_url and upload_url are usually set together")
	}

	if cfg.CredentialsFile != "" && cfg.IdentityFile == "" {
		v.errors.Addf("github.identity_file: required when credentials_file is set")
	}
	if cfg.Token != "" && !strings.HasPrefix(cfg.Token, "$") && looksLikeGitHubToken(cfg.Token) {
		v.errors.Warnf("github.token: plaintext token in configuration, prefer ${GITHUB_TOKEN} or credentials_file")
	}
}

// looksLikeGitHubToken reports whether s has a GitHub token prefix.
func looksLikeGitHubToken(s string) bool {
	for _, prefix := range []string{"ghp_", "gho_", "ghs_", "ghu_", "github_pat_"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, cfg.LogLevel) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLogLevels, cfg.LogLevel)
	}

	for name, path := range map[string]string{
		"output.log_file":     cfg.LogFile,
		"output.report_file":  cfg.ReportFile,
		"output.metrics_file": cfg.MetricsFile,
	} {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				v.errors.Addf("%s: directory does not exist: %s", name, dir)
			}
		}
	}
}

// Validate is a convenience function to validate configuration.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
