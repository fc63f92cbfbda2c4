package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/ghrelease/internal/application/publish"
	"github.com/relicta-tech/ghrelease/internal/config"
	"github.com/relicta-tech/ghrelease/internal/domain/release"
	"github.com/relicta-tech/ghrelease/internal/infrastructure/fileset"
	"github.com/relicta-tech/ghrelease/internal/observability"
)

var (
	publishRepository         string
	publishTag                string
	publishName               string
	publishDescription        string
	publishDescriptionFile    string
	publishCommitish          string
	publishDraft              bool
	publishPreRelease         bool
	publishStrategy           string
	publishAssetDirs          []string
	publishOverwrite          bool
	publishFailIfExists       bool
	publishDeleteExisting     bool
	publishIncludePreReleases bool
	publishReportFile         string
	publishMetricsFile        string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Create or update the GitHub release and upload its assets",
	Long: `Reconcile the configured release with GitHub, then upload the asset files.

The release is looked up by name:
  - missing: it is created
  - present: it is reused, or with --fail-if-exists the run fails,
    or with --delete-existing it is deleted and created again

Assets already attached under the same file name are skipped unless
--overwrite-assets is set. Pre-releases are skipped entirely unless
--include-prereleases is set.`,
	RunE: runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.StringVar(&publishRepository, "repository", "", "SCM connection string or owner/name (default: origin remote)")
	f.StringVarP(&publishTag, "tag", "t", "", "tag of the release")
	f.StringVarP(&publishName, "name", "n", "", "name of the release")
	f.StringVar(&publishDescription, "description", "", "release description")
	f.StringVar(&publishDescriptionFile, "description-file", "", "file holding the release description")
	f.StringVar(&publishCommitish, "commitish", "", "commitish the tag is created from")
	f.BoolVar(&publishDraft, "draft", false, "create the release as a draft")
	f.BoolVar(&publishPreRelease, "prerelease", false, "force the pre-release flag (default: derived from the tag)")
	f.StringVar(&publishStrategy, "prerelease-strategy", "", "how to detect pre-releases: maven or semver")
	f.StringSliceVarP(&publishAssetDirs, "assets", "a", nil, "directory whose files are uploaded (repeatable)")
	f.BoolVar(&publishOverwrite, "overwrite-assets", false, "replace assets that already exist")
	f.BoolVar(&publishFailIfExists, "fail-if-exists", false, "fail when a release with the same name exists")
	f.BoolVar(&publishDeleteExisting, "delete-existing", false, "delete an existing release with the same name first")
	f.BoolVar(&publishIncludePreReleases, "include-prereleases", false, "publish pre-releases too")
	f.StringVar(&publishReportFile, "report-file", "", "write a JSON run report to this file")
	f.StringVar(&publishMetricsFile, "metrics-file", "", "write Prometheus metrics to this file")
}

// applyPublishFlags overlays explicitly set flags on the configuration.
func applyPublishFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	setString := func(name string, dst *string, val string) {
		if f.Changed(name) {
			*dst = val
		}
	}
	setBool := func(name string, dst *bool, val bool) {
		if f.Changed(name) {
			*dst = val
		}
	}

	setString("repository", &c.Repository, publishRepository)
	setString("tag", &c.Release.Tag, publishTag)
	setString("name", &c.Release.Name, publishName)
	setString("description", &c.Release.Description, publishDescription)
	setString("description-file", &c.Release.DescriptionFile, publishDescriptionFile)
	setString("commitish", &c.Release.Commitish, publishCommitish)
	setString("prerelease-strategy", &c.Release.PreReleaseStrategy, publishStrategy)
	setString("report-file", &c.Output.ReportFile, publishReportFile)
	setString("metrics-file", &c.Output.MetricsFile, publishMetricsFile)

	setBool("draft", &c.Release.Draft, publishDraft)
	setBool("overwrite-assets", &c.Policy.OverwriteExistingAssets, publishOverwrite)
	setBool("fail-if-exists", &c.Policy.FailIfReleaseExists, publishFailIfExists)
	setBool("delete-existing", &c.Policy.DeleteExistingRelease, publishDeleteExisting)
	if f.Changed("include-prereleases") {
		c.Policy.ExcludePreReleases = !publishIncludePreReleases
	}
	if f.Changed("prerelease") {
		v := publishPreRelease
		c.Release.PreRelease = &v
	}

	for _, dir := range publishAssetDirs {
		c.Assets = append(c.Assets, config.AssetSetConfig{Directory: dir})
	}
}

func runPublish(cmd *cobra.Command, args []string) error {
	applyPublishFlags(cmd, cfg)

	v := config.NewValidator()
	if err := v.Validate(cfg); err != nil {
		return err
	}
	for _, w := range v.Warnings() {
		logger.Warn(w)
	}

	in, err := publishInput(cfg)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	lg := slogLogger()
	metrics := observability.NewMetrics(versionInfo.Version)
	svc := publish.NewService(
		newClientFactory(cfg, metrics, lg, dryRun),
		fileset.NewResolver(wd, assetSets(cfg)),
		publish.WithLogger(lg),
		publish.WithRepositoryLocator(newLocator()),
	)

	start := time.Now()
	out, runErr := svc.Execute(cmd.Context(), in)
	recordRun(metrics, out, runErr, time.Since(start))

	report := newPublishReport(in, out, runErr, dryRun)
	if err := writeReport(cfg.Output.ReportFile, report); err != nil {
		logger.Warn("could not write run report", "error", err)
	}
	if err := observability.WriteFileIfSet(metrics, cfg.Output.MetricsFile); err != nil {
		logger.Warn("could not write metrics", "error", err)
	}

	w := cmd.OutOrStdout()
	if IsJSONOutput() {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil && runErr == nil {
			return err
		}
		return runErr
	}
	if runErr != nil {
		return runErr
	}
	printPublishSummary(w, out)
	return nil
}

func recordRun(m *observability.Metrics, out *publish.Output, err error, d time.Duration) {
	excluded := out != nil && out.Excluded
	m.RecordRun(excluded, err, d)
	if out == nil || excluded {
		return
	}
	if out.Action != "" {
		m.RecordReleaseAction(out.Action)
	}
	m.RecordAssets(out.Assets)
}

// printPublishSummary prints the final release summary.
func printPublishSummary(w io.Writer, out *publish.Output) {
	if out.Excluded {
		printInfo(w, fmt.Sprintf("Skipped pre-release %s: pre-releases are excluded", out.Tag))
		return
	}

	fmt.Fprintln(w)
	printTitle(w, "Release Summary")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Repository: %s\n", out.Repository)
	fmt.Fprintf(w, "  Release:    %s (%s)\n", out.Release.Name, out.Action)
	fmt.Fprintf(w, "  Tag:        %s\n", out.Release.TagName)
	if out.Release.URL != "" {
		fmt.Fprintf(w, "  URL:        %s\n", out.Release.URL)
	}
	fmt.Fprintf(w, "  Assets:     %d uploaded, %d skipped\n", len(out.Assets.Uploaded), len(out.Assets.Skipped()))

	if len(out.Assets.Outcomes) > 0 {
		fmt.Fprintln(w)
		for _, o := range out.Assets.Outcomes {
			switch o.Action {
			case release.AssetSkipped:
				printWarning(w, fmt.Sprintf("  %s: already exists, skipped", o.File.Name))
			case release.AssetReplaced:
				printSuccess(w, fmt.Sprintf("  %s: replaced (%s)", o.File.Name, o.ContentType))
			default:
				printSuccess(w, fmt.Sprintf("  %s: uploaded (%s)", o.File.Name, o.ContentType))
			}
		}
	}

	if dryRun {
		fmt.Fprintln(w)
		printSubtle(w, "Dry run: no changes were made on GitHub")
	}
}
