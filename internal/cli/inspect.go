package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
)

var (
	repoIDRaw        bool
	classifyStrategy string
)

var repoIDCmd = &cobra.Command{
	Use:   "repo-id [connection]",
	Short: "Print the owner/name of the GitHub repository",
	Long: `Resolve a GitHub repository identifier from an SCM connection string,
for example scm:git:https://github.com/owner/name.git or
git@github.com:owner/name.git.

Without an argument the configured repository is used, then the URL of the
origin remote of the working tree.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepoID,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <version>...",
	Short: "Report whether versions are pre-releases",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

var mimeCmd = &cobra.Command{
	Use:   "mime [file]...",
	Short: "Print the content type used to upload each file",
	Long: `Print the content type used to upload each file.

Without arguments, print the extension table in effect: the configured
mime_types or mime_types_file, otherwise the built-in defaults.`,
	RunE: runMime,
}

func init() {
	repoIDCmd.Flags().BoolVar(&repoIDRaw, "raw", false, "print the input unchanged when it is not a GitHub URL")
	classifyCmd.Flags().StringVar(&classifyStrategy, "strategy", "", "pre-release strategy: maven or semver (default: from config)")
}

func runRepoID(cmd *cobra.Command, args []string) error {
	conn := cfg.Repository
	if len(args) == 1 {
		conn = args[0]
	}
	if conn == "" {
		url, err := newLocator().OriginURL(cmd.Context())
		if err != nil {
			return err
		}
		conn = url
	}

	var id string
	if repoIDRaw {
		var err error
		if id, err = release.ParseRepositoryID(conn); err != nil {
			return err
		}
	} else {
		ref, err := release.ResolveRepository(conn)
		if err != nil {
			return err
		}
		id = ref.String()
	}

	if IsJSONOutput() {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"repository": id})
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

type classification struct {
	Version    string `json:"version"`
	PreRelease bool   `json:"prerelease"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	strategy := cfg.Release.PreReleaseStrategy
	if classifyStrategy != "" {
		strategy = classifyStrategy
	}
	if !release.ValidPreReleaseStrategy(strategy) {
		return fmt.Errorf("unknown pre-release strategy %q", strategy)
	}

	results := make([]classification, 0, len(args))
	for _, v := range args {
		results = append(results, classification{
			Version:    v,
			PreRelease: release.ClassifyPreRelease(v, release.PreReleaseStrategy(strategy)),
		})
	}

	w := cmd.OutOrStdout()
	if IsJSONOutput() {
		return json.NewEncoder(w).Encode(results)
	}
	for _, r := range results {
		if r.PreRelease {
			printWarning(w, r.Version+": pre-release")
		} else {
			printSuccess(w, r.Version+": release")
		}
	}
	return nil
}

type contentType struct {
	File        string `json:"file"`
	ContentType string `json:"content_type"`
}

type mimeMapping struct {
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
}

func runMime(cmd *cobra.Command, args []string) error {
	table, err := mimeTypes(cfg)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return printMimeTable(cmd.OutOrStdout(), table)
	}

	results := make([]contentType, 0, len(args))
	for _, f := range args {
		ct, err := table.Resolve(release.NewLocalAssetFile(f).Name)
		if err != nil {
			return err
		}
		results = append(results, contentType{File: f, ContentType: ct})
	}

	w := cmd.OutOrStdout()
	if IsJSONOutput() {
		return json.NewEncoder(w).Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\n", r.File, r.ContentType)
	}
	return nil
}

func printMimeTable(w io.Writer, table release.MimeTypeMap) error {
	mappings := make([]mimeMapping, 0, table.Len())
	for _, ext := range table.Extensions() {
		ct, _ := table.Lookup(ext)
		mappings = append(mappings, mimeMapping{Extension: ext, ContentType: ct})
	}

	if IsJSONOutput() {
		return json.NewEncoder(w).Encode(mappings)
	}
	for _, m := range mappings {
		fmt.Fprintf(w, "%s\t%s\n", m.Extension, m.ContentType)
	}
	return nil
}
