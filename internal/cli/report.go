package cli

import (
	"encoding/json"
	"fmt"

	"github.com/relicta-tech/ghrelease/internal/application/publish"
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
	"github.com/relicta-tech/ghrelease/internal/fileutil"
)

// publishReport is the JSON summary of a publish run, printed with --json
// and written to output.report_file.
type publishReport struct {
	RunID      string         `json:"run_id,omitempty"`
	Repository string         `json:"repository,omitempty"`
	Tag        string         `json:"tag"`
	PreRelease bool           `json:"prerelease"`
	Excluded   bool           `json:"excluded"`
	DryRun     bool           `json:"dry_run"`
	Release    *reportRelease `json:"release,omitempty"`
	Assets     []reportAsset  `json:"assets,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  string         `json:"error_kind,omitempty"`

	// DeletedRelease names a release removed before a failed re-create.
	DeletedRelease string `json:"deleted_release,omitempty"`
}

type reportRelease struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Tag    string `json:"tag"`
	URL    string `json:"url,omitempty"`
	Action string `json:"action"`
}

type reportAsset struct {
	Name        string `json:"name"`
	Action      string `json:"action"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	URL         string `json:"url,omitempty"`
}

func newPublishReport(in publish.Input, out *publish.Output, err error, dry bool) publishReport {
	r := publishReport{Tag: in.Tag, DryRun: dry}
	if err != nil {
		r.Error = rperrors.RedactSensitive(err.Error())
		r.ErrorKind = rperrors.GetKind(err).String()
		if v, ok := rperrors.Detail(err, "deleted_release"); ok {
			r.DeletedRelease = fmt.Sprint(v)
		}
	}
	if out == nil {
		return r
	}

	r.RunID = out.RunID
	r.PreRelease = out.PreRelease
	r.Excluded = out.Excluded
	r.DurationMS = out.Duration.Milliseconds()
	if out.Excluded {
		return r
	}

	r.Repository = out.Repository.String()
	if out.Action == "" {
		return r
	}
	r.Release = &reportRelease{
		ID:     out.Release.ID,
		Name:   out.Release.Name,
		Tag:    out.Release.TagName,
		URL:    out.Release.URL,
		Action: string(out.Action),
	}
	for _, o := range out.Assets.Outcomes {
		a := reportAsset{Name: o.File.Name, Action: string(o.Action), ContentType: o.ContentType}
		if o.Asset != nil {
			a.Size = o.Asset.Size
			a.URL = o.Asset.DownloadURL
		}
		r.Assets = append(r.Assets, a)
	}
	return r
}

// writeReport writes r as indented JSON to path, atomically.
func writeReport(path string, r publishReport) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := fileutil.AtomicWriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
