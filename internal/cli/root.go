// Package cli provides the command-line interface for ghrelease.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/relicta-tech/ghrelease/internal/config"
	"github.com/relicta-tech/ghrelease/internal/security"
	"github.com/relicta-tech/ghrelease/internal/version"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile    string
	verbose    bool
	dryRun     bool
	outputJSON bool
	noColor    bool
	logLevel   string

	// Global config
	cfg *config.Config

	// Logger
	logger *log.Logger

	// logFile holds the log file handle for cleanup
	logFile *os.File

	// Styles
	styles = struct {
		Title   lipgloss.Style
		Success lipgloss.Style
		Error   lipgloss.Style
		Warning lipgloss.Style
		Info    lipgloss.Style
		Subtle  lipgloss.Style
		Bold    lipgloss.Style
	}{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		Subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bold:    lipgloss.NewStyle().Bold(true),
	}
)

// SetVersionInfo sets the version information from main. A missing or
// "dev" version falls back to the module build info.
func SetVersionInfo(v, commit, date string) {
	versionInfo.Version = version.Resolve(v)
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ghrelease",
	Short: "Publish GitHub releases and upload their assets",
	Long: `ghrelease reconciles a GitHub release with a local description of it
and uploads build artifacts as release assets.

A release is looked up by name. Depending on policy it is reused, replaced,
or reported as a conflict. Assets are matched by file name and either
skipped or overwritten.

Get started with a ghrelease.yaml next to your build output, then run
'ghrelease publish'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context for graceful shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// JSON format and log level are configured in initConfig based on flags
	logger = log.NewWithOptions(security.NewMaskedWriter(os.Stderr), log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ghrelease.yaml or .ghrelease.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "simulate changes to GitHub, read calls still go out")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results and logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(repoIDCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(mimeCmd)
}

// loadConfig loads the configuration. Validation happens in the commands
// that need a complete release description, after their flags are applied.
func loadConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	}

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if path := loader.GetConfigPath(); path != "" {
		logger.Debug("loaded configuration", "path", path)
	}
	return nil
}

// applyGlobalFlags applies global CLI flags to the configuration.
func applyGlobalFlags() {
	if verbose {
		cfg.Output.Verbose = true
	}
	if logLevel != "" {
		cfg.Output.LogLevel = logLevel
	}
	if outputJSON {
		cfg.Output.Format = "json"
	}
	if noColor {
		cfg.Output.Color = false
	}
	if !cfg.Output.Color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// configureLoggerFormat configures the logger format based on settings.
func configureLoggerFormat() {
	if cfg.Output.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
		logger.SetReportTimestamp(true)
	} else {
		logger.SetFormatter(log.TextFormatter)
	}
}

// configureLogLevel sets the logger level based on configuration.
func configureLogLevel() {
	switch cfg.Output.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if cfg.Output.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// configureLogFile sets up log file output if specified.
func configureLogFile() error {
	if cfg.Output.LogFile == "" {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(cfg.Output.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(security.NewMaskedWriter(logFile))
	return nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if err := loadConfig(); err != nil {
		return err
	}

	applyGlobalFlags()
	configureLoggerFormat()
	configureLogLevel()
	if security.EnableInCI() {
		logger.Debug("CI detected, masking tokens in output")
	}

	return configureLogFile()
}

// slogLogger exposes the charm logger to the application layer.
func slogLogger() *slog.Logger {
	return slog.New(logger)
}

// Cleanup closes any open resources. Should be called before program exit.
func Cleanup() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "ghrelease %s\n", versionInfo.Version)
		if verbose {
			fmt.Fprintf(w, "  commit: %s\n", versionInfo.Commit)
			fmt.Fprintf(w, "  built:  %s\n", versionInfo.Date)
		}
	},
}

// Helper functions for output

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Success.Render("✓ "+msg))
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Warning.Render("⚠ "+msg))
}

func printInfo(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Info.Render("ℹ "+msg))
}

func printTitle(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Title.Render(msg))
}

func printSubtle(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Subtle.Render(msg))
}

// IsJSONOutput returns true if JSON output is enabled.
func IsJSONOutput() bool {
	return outputJSON || (cfg != nil && cfg.Output.Format == "json")
}
