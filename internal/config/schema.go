// Package config provides configuration management for ghrelease.
package config

import "time"

// Config is the root configuration for ghrelease.
type Config struct {
	// Repository is an SCM connection string or owner/name. Empty means the
	// origin remote of the working tree.
	Repository string `mapstructure:"repository" json:"repository,omitempty"`
	// Release describes the release to reconcile.
	Release ReleaseConfig `mapstructure:"release" json:"release"`
	// Assets lists the file sets to upload, in order.
	Assets []AssetSetConfig `mapstructure:"assets" json:"assets,omitempty"`
	// MimeTypes replaces the default extension table when non-empty.
	MimeTypes map[string]string `mapstructure:"mime_types" json:"mime_types,omitempty"`
	// MimeTypesFile is a yaml, json or toml file holding the same mapping.
	MimeTypesFile string `mapstructure:"mime_types_file" json:"mime_types_file,omitempty"`
	// Policy controls how existing releases and assets are treated.
	Policy PolicyConfig `mapstructure:"policy" json:"policy"`
	// GitHub configures the GitHub API client.
	GitHub GitHubConfig `mapstructure:"github" json:"github"`
	// Output configures output settings.
	Output OutputConfig `mapstructure:"output" json:"output"`
}

// ReleaseConfig describes the desired release.
type ReleaseConfig struct {
	Tag             string `mapstructure:"tag" json:"tag"`
	Name            string `mapstructure:"name" json:"name"`
	Description     string `mapstructure:"description" json:"description,omitempty"`
	DescriptionFile string `mapstructure:"description_file" json:"description_file,omitempty"`
	Commitish       string `mapstructure:"commitish" json:"commitish,omitempty"`
	Draft           bool   `mapstructure:"draft" json:"draft"`
	// PreRelease forces the pre-release flag. Nil means derive it from the tag.
	PreRelease *bool `mapstructure:"prerelease" json:"prerelease,omitempty"`
	// PreReleaseStrategy is "maven" (marker substrings) or "semver".
	PreReleaseStrategy string `mapstructure:"prerelease_strategy" json:"prerelease_strategy"`
}

// AssetSetConfig is one directory with include and exclude patterns.
type AssetSetConfig struct {
	Directory string   `mapstructure:"directory" json:"directory"`
	Includes  []string `mapstructure:"includes" json:"includes,omitempty"`
	Excludes  []string `mapstructure:"excludes" json:"excludes,omitempty"`
}

// PolicyConfig mirrors release.Policy.
type PolicyConfig struct {
	OverwriteExistingAssets bool `mapstructure:"overwrite_existing_assets" json:"overwrite_existing_assets"`
	ExcludePreReleases      bool `mapstructure:"exclude_prereleases" json:"exclude_prereleases"`
	FailIfReleaseExists     bool `mapstructure:"fail_if_release_exists" json:"fail_if_release_exists"`
	DeleteExistingRelease   bool `mapstructure:"delete_existing_release" json:"delete_existing_release"`
}

// GitHubConfig configures access to the GitHub API.
type GitHubConfig struct {
	// Token is a personal access token (can use env var expansion).
	Token string `mapstructure:"token" json:"-"`
	// CredentialsFile is an age-encrypted file holding the token.
	CredentialsFile string `mapstructure:"credentials_file" json:"credentials_file,omitempty"`
	// IdentityFile holds the age identities used to decrypt CredentialsFile.
	IdentityFile string `mapstructure:"identity_file" json:"identity_file,omitempty"`
	// BaseURL and UploadURL point at a GitHub Enterprise installation.
	BaseURL   string `mapstructure:"base_url" json:"base_url,omitempty"`
	UploadURL string `mapstructure:"upload_url" json:"upload_url,omitempty"`
	// Retry configures retries of idempotent API calls.
	Retry RetryConfig `mapstructure:"retry" json:"retry"`
	// RateLimitRPM caps API requests per minute. Zero disables limiting.
	RateLimitRPM int `mapstructure:"rate_limit_rpm" json:"rate_limit_rpm,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	Attempts    int           `mapstructure:"attempts" json:"attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait" json:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait" json:"max_wait"`
}

// OutputConfig configures output settings.
type OutputConfig struct {
	// Format is the log format (text, json).
	Format string `mapstructure:"format" json:"format"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	// LogFile appends logs to a file instead of stderr.
	LogFile string `mapstructure:"log_file" json:"log_file,omitempty"`
	Verbose bool   `mapstructure:"verbose" json:"verbose"`
	Color   bool   `mapstructure:"color" json:"color"`
	// ReportFile receives a JSON summary of the run.
	ReportFile string `mapstructure:"report_file" json:"report_file,omitempty"`
	// MetricsFile receives Prometheus text-format counters of the run.
	MetricsFile string `mapstructure:"metrics_file" json:"metrics_file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Release: ReleaseConfig{
			PreReleaseStrategy: "maven",
		},
		Policy: PolicyConfig{
			ExcludePreReleases: true,
		},
		GitHub: GitHubConfig{
			Retry: RetryConfig{
				Attempts:    3,
				InitialWait: 500 * time.Millisecond,
				MaxWait:     10 * time.Second,
			},
		},
		Output: OutputConfig{
			Format:   "text",
			LogLevel: "info",
			Color:    true,
		},
	}
}

// ConfigFileNames to search for, in order.
var ConfigFileNames = []string{
	"ghrelease",
	".ghrelease",
}

// ConfigFileExtensions supported by Viper.
var ConfigFileExtensions = []string{
	"yaml",
	"yml",
	"json",
	"toml",
}
