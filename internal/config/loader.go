package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// EnvPrefix prefixes environment overrides, e.g. GHRELEASE_RELEASE_TAG.
const EnvPrefix = "GHRELEASE"

var (
	// envVarPattern matches ${VAR} or ${VAR:-default} syntax
	envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)
	// simpleEnvVarPattern matches $VAR syntax
	simpleEnvVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// Keys without a default still need an explicit env binding for
// AutomaticEnv to reach them during Unmarshal.
var envOnlyKeys = []string{
	"repository",
	"release.tag",
	"release.name",
	"release.description",
	"release.description_file",
	"release.commitish",
	"release.prerelease",
	"mime_types_file",
	"github.token",
	"github.credentials_file",
	"github.identity_file",
	"github.base_url",
	"github.upload_url",
	"output.log_file",
	"output.report_file",
	"output.metrics_file",
}

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths replaces the directories searched for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = paths
	return l
}

// Load loads the configuration. A missing config file is not an error;
// defaults and environment overrides still apply.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()
	for _, key := range envOnlyKeys {
		if err := l.v.BindEnv(key); err != nil {
			return nil, rperrors.ConfigWrap(err, op, "failed to bind environment variable for "+key)
		}
	}

	if err := l.loadConfigFile(); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	expandEnvVars(cfg)
	return cfg, nil
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("release.draft", defaults.Release.Draft)
	l.v.SetDefault("release.prerelease_strategy", defaults.Release.PreReleaseStrategy)

	l.v.SetDefault("policy.overwrite_existing_assets", defaults.Policy.OverwriteExistingAssets)
	l.v.SetDefault("policy.exclude_prereleases", defaults.Policy.ExcludePreReleases)
	l.v.SetDefault("policy.fail_if_release_exists", defaults.Policy.FailIfReleaseExists)
	l.v.SetDefault("policy.delete_existing_release", defaults.Policy.DeleteExistingRelease)

	l.v.SetDefault("github.retry.attempts", defaults.GitHub.Retry.Attempts)
	l.v.SetDefault("github.retry.initial_wait", defaults.GitHub.Retry.InitialWait)
	l.v.SetDefault("github.retry.max_wait", defaults.GitHub.Retry.MaxWait)
	l.v.SetDefault("github.rate_limit_rpm", defaults.GitHub.RateLimitRPM)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
	l.v.SetDefault("output.verbose", defaults.Output.Verbose)
	l.v.SetDefault("output.color", defaults.Output.Color)
}

func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	path, err := FindConfigFile(l.searchPaths...)
	if err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

func expandEnvVars(cfg *Config) {
	cfg.Repository = expandEnvVar(cfg.Repository)

	cfg.Release.Tag = expandEnvVar(cfg.Release.Tag)
	cfg.Release.Name = expandEnvVar(cfg.Release.Name)
	cfg.Release.DescriptionFile = expandEnvVar(cfg.Release.DescriptionFile)
	cfg.Release.Commitish = expandEnvVar(cfg.Release.Commitish)

	for i := range cfg.Assets {
		cfg.Assets[i].Directory = expandEnvVar(cfg.Assets[i].Directory)
	}
	cfg.MimeTypesFile = expandEnvVar(cfg.MimeTypesFile)

	cfg.GitHub.Token = expandEnvVar(cfg.GitHub.Token)
	cfg.GitHub.CredentialsFile = expandEnvVar(cfg.GitHub.CredentialsFile)
	cfg.GitHub.IdentityFile = expandEnvVar(cfg.GitHub.IdentityFile)
	cfg.GitHub.BaseURL = expandEnvVar(cfg.GitHub.BaseURL)
	cfg.GitHub.UploadURL = expandEnvVar(cfg.GitHub.UploadURL)

	cfg.Output.LogFile = expandEnvVar(cfg.Output.LogFile)
	cfg.Output.ReportFile = expandEnvVar(cfg.Output.ReportFile)
	cfg.Output.MetricsFile = expandEnvVar(cfg.Output.MetricsFile)
}

// expandEnvVar expands ${VAR}, ${VAR:-default} and $VAR. An unset $VAR is
// left as written.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if value := os.Getenv(submatch[1]); value != "" {
			return value
		}
		if len(submatch) > 2 {
			return submatch[2]
		}
		return ""
	})

	return simpleEnvVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		if value := os.Getenv(match[1:]); value != "" {
			return value
		}
		return match
	})
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}

	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if info, err := os.Stat(configFile); err == nil && !info.IsDir() {
					return configFile, nil
				}
			}
		}
	}

	return "", rperrors.NotFound("config.FindConfigFile", "no config file found")
}

// ConfigExists returns true if a config file exists in the given directory.
func ConfigExists(dir string) bool {
	_, err := FindConfigFile(dir)
	return err == nil
}
