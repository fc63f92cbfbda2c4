package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/ghrelease/internal/application/publish"
	"github.com/relicta-tech/ghrelease/internal/config"
	"github.com/relicta-tech/ghrelease/internal/domain/release"
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
	"github.com/relicta-tech/ghrelease/internal/observability"
)

func defaultTestConfig() *config.Config {
	c := config.DefaultConfig()
	c.Repository = "acme/widget"
	c.Release.Tag = "v1.0.0"
	c.Release.Name = "1.0.0"
	return c
}

func sampleOutput() *publish.Output {
	zip := release.NewLocalAssetFile("/dist/app.zip")
	jar := release.NewLocalAssetFile("/dist/old.jar")
	uploaded := release.RemoteAsset{ID: 9, Name: "app.zip", ContentType: "application/zip", Size: 3, DownloadURL: "https://example.com/app.zip"}

	return &publish.Output{
		RunID:      "run-1",
		Repository: release.RepositoryRef{Owner: "acme", Name: "widget"},
		Tag:        "v1.0.0",
		Release:    release.RemoteRelease{ID: 7, Name: "1.0.0", TagName: "v1.0.0", URL: "https://github.com/acme/widget/releases/tag/v1.0.0"},
		Action:     release.ActionCreated,
		Assets: release.SyncResult{
			Uploaded: []release.RemoteAsset{uploaded},
			Outcomes: []release.AssetOutcome{
				{File: zip, Action: release.AssetUploaded, ContentType: "application/zip", Asset: &uploaded},
				{File: jar, Action: release.AssetSkipped},
			},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestNewPublishReport(t *testing.T) {
	in := publish.Input{Tag: "v1.0.0"}

	r := newPublishReport(in, sampleOutput(), nil, true)

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "acme/widget", r.Repository)
	assert.True(t, r.DryRun)
	assert.Equal(t, int64(1500), r.DurationMS)
	require.NotNil(t, r.Release)
	assert.Equal(t, "created", r.Release.Action)
	require.Len(t, r.Assets, 2)
	assert.Equal(t, reportAsset{Name: "app.zip", Action: "uploaded", ContentType: "application/zip", Size: 3, URL: "https://example.com/app.zip"}, r.Assets[0])
	assert.Equal(t, reportAsset{Name: "old.jar", Action: "skipped"}, r.Assets[1])
	assert.Empty(t, r.Error)
}

func TestNewPublishReport_Error(t *testing.T) {
	err := rperrors.Conflict("release.Reconcile", "release 1.0.0 already exists")

	r := newPublishReport(publish.Input{Tag: "v1.0.0"}, nil, err, false)

	assert.Equal(t, "v1.0.0", r.Tag)
	assert.Equal(t, "conflict", r.ErrorKind)
	assert.Contains(t, r.Error, "already exists")
	assert.Nil(t, r.Release)
}

func TestNewPublishReport_PartialUploads(t *testing.T) {
	out := sampleOutput()
	out.Assets.Outcomes = out.Assets.Outcomes[:1]
	err := rperrors.NotMapped("release.ResolveContentType", "missing MIME type mapping for file extension txt")

	r := newPublishReport(publish.Input{Tag: "v1.0.0"}, out, err, false)

	assert.Equal(t, "not_mapped", r.ErrorKind)
	assert.Contains(t, r.Error, "extension txt")
	require.NotNil(t, r.Release)
	assert.Equal(t, "created", r.Release.Action)
	require.Len(t, r.Assets, 1)
	assert.Equal(t, "app.zip", r.Assets[0].Name)
	assert.Equal(t, "uploaded", r.Assets[0].Action)
}

func TestNewPublishReport_DeletedBeforeFailedCreate(t *testing.T) {
	out := &publish.Output{RunID: "run-3", Tag: "v1.0.0", Repository: release.RepositoryRef{Owner: "acme", Name: "widget"}}
	err := rperrors.RemoteWrap(errors.New("HTTP 422"), "release.Reconcile", "failed to create release 1.0.0").
		WithDetail("deleted_release", "1.0.0")

	r := newPublishReport(publish.Input{Tag: "v1.0.0"}, out, err, false)

	assert.Equal(t, "remote", r.ErrorKind)
	assert.Equal(t, "1.0.0", r.DeletedRelease)
	assert.Equal(t, "acme/widget", r.Repository)
	assert.Nil(t, r.Release, "no release exists after a failed re-create")
	assert.Empty(t, r.Assets)
}

func TestNewPublishReport_Excluded(t *testing.T) {
	out := &publish.Output{RunID: "run-2", Tag: "1.0-RC1", PreRelease: true, Excluded: true}

	r := newPublishReport(publish.Input{Tag: "1.0-RC1"}, out, nil, false)

	assert.True(t, r.Excluded)
	assert.Empty(t, r.Repository)
	assert.Nil(t, r.Release)
}

func TestWriteReport(t *testing.T) {
	require.NoError(t, writeReport("", publishReport{}))

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReport(path, newPublishReport(publish.Input{Tag: "v1.0.0"}, sampleOutput(), nil, false)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "acme/widget", got["repository"])
	assert.Equal(t, false, got["dry_run"])

	err = writeReport(filepath.Join(t.TempDir(), "missing", "report.json"), publishReport{})
	assert.Error(t, err)
}

func TestRecordRun(t *testing.T) {
	m := observability.NewMetrics("test")

	recordRun(m, sampleOutput(), nil, time.Second)
	recordRun(m, &publish.Output{Excluded: true}, nil, time.Millisecond)
	recordRun(m, nil, errors.New("boom"), time.Millisecond)

	path := filepath.Join(t.TempDir(), "m.prom")
	require.NoError(t, m.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, want := range []string{
		`ghrelease_runs_total{result="success"} 1`,
		`ghrelease_runs_total{result="excluded"} 1`,
		`ghrelease_runs_total{result="failed"} 1`,
		`ghrelease_releases_total{action="created"} 1`,
		`ghrelease_assets_total{action="skipped"} 1`,
	} {
		assert.Contains(t, string(data), want)
	}
}

func TestPublishInput(t *testing.T) {
	c := defaultTestConfig()
	pre := true
	c.Release.PreRelease = &pre
	c.Release.PreReleaseStrategy = "semver"
	c.Policy.OverwriteExistingAssets = true
	c.MimeTypes = map[string]string{"txt": "text/plain"}

	in, err := publishInput(c)
	require.NoError(t, err)

	assert.Equal(t, "acme/widget", in.Repository)
	assert.Equal(t, "v1.0.0", in.Tag)
	assert.Same(t, &pre, in.PreRelease)
	assert.Equal(t, release.PreReleaseSemver, in.PreReleaseStrategy)
	assert.Equal(t, release.Policy{OverwriteExistingAssets: true, ExcludePreReleases: true}, in.Policy)
	assert.Equal(t, 1, in.MimeTypes.Len())
	require.NoError(t, in.Validate())

	c.MimeTypes = nil
	c.MimeTypesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = publishInput(c)
	assert.True(t, rperrors.IsKind(err, rperrors.KindIO), "err = %v", err)
}

func TestMimeTypes_Defaults(t *testing.T) {
	m, err := mimeTypes(defaultTestConfig())
	require.NoError(t, err)
	assert.Equal(t, release.DefaultMimeTypes().Extensions(), m.Extensions())
}

func TestAssetSetsAndResilience(t *testing.T) {
	c := defaultTestConfig()
	c.Assets = []config.AssetSetConfig{
		{Directory: "target", Includes: []string{"*.zip"}, Excludes: []string{"*-sources.zip"}},
		{Directory: "dist"},
	}
	c.GitHub.RateLimitRPM = 30

	sets := assetSets(c)
	require.Len(t, sets, 2)
	assert.Equal(t, "target", sets[0].Directory)
	assert.Equal(t, []string{"*-sources.zip"}, sets[0].Excludes)
	assert.Empty(t, sets[1].Includes)

	rc := resilienceConfig(c.GitHub)
	assert.Equal(t, 3, rc.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, rc.RetryInitialWait)
	assert.Equal(t, 30, rc.RateLimitRPM)
}
