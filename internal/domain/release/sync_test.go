package release_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
	"github.com/relicta-tech/ghrelease/internal/domain/release/releasetest"
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

func writeAsset(t *testing.T, dir, name, content string) release.LocalAssetFile {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return release.NewLocalAssetFile(path)
}

func TestSync_UploadsNewAssets(t *testing.T) {
	dir := t.TempDir()
	client := releasetest.NewClient()
	rel := client.AddRelease(testRepo, "1.0", "v1.0")

	files := []release.LocalAssetFile{
		writeAsset(t, dir, "app.zip", "zip-bytes"),
		writeAsset(t, dir, "app.tar.gz", "gz-bytes"),
	}

	s := release.NewSynchronizer(client, release.DefaultMimeTypes(), false)
	res, err := s.Sync(context.Background(), testRepo, rel, files)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if len(res.Uploaded) != 2 {
		t.Fatalf("Uploaded = %d, want 2", len(res.Uploaded))
	}
	if res.Uploaded[0].ContentType != "application/zip" || res.Uploaded[1].ContentType != "application/gzip" {
		t.Errorf("content types = %q, %q", res.Uploaded[0].ContentType, res.Uploaded[1].ContentType)
	}
	if data, ok := client.Uploaded("app.zip"); !ok || string(data) != "zip-bytes" {
		t.Errorf("uploaded content = %q, %v", data, ok)
	}
	if len(res.Skipped()) != 0 {
		t.Errorf("Skipped() = %+v", res.Skipped())
	}
}

func TestSync_SkipsExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	client := releasetest.NewClient()
	rel := client.AddRelease(testRepo, "1.0", "v1.0", "app.zip")

	files := []release.LocalAssetFile{
		writeAsset(t, dir, "app.zip", "new"),
		writeAsset(t, dir, "app.jar", "jar"),
	}

	s := release.NewSynchronizer(client, release.DefaultMimeTypes(), false)
	res, err := s.Sync(context.Background(), testRepo, rel, files)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if len(res.Uploaded) != 1 || res.Uploaded[0].Name != "app.jar" {
		t.Errorf("Uploaded = %+v, want only app.jar", res.Uploaded)
	}
	skipped := res.Skipped()
	if len(skipped) != 1 || skipped[0].File.Name != "app.zip" {
		t.Errorf("Skipped() = %+v", skipped)
	}
	for _, call := range client.MutatingCalls() {
		if call.Op == releasetest.OpDeleteAsset {
			t.Errorf("unexpected delete %+v", call)
		}
	}
}

func TestSync_OverwriteReplacesAllDuplicates(t *testing.T) {
	dir := t.TempDir()
	client := releasetest.NewClient()
	rel := client.AddRelease(testRepo, "1.0", "v1.0", "app.zip", "app.zip", "other.zip")

	s := release.NewSynchronizer(client, release.DefaultMimeTypes(), true)
	res, err := s.Sync(context.Background(), testRepo, rel, []release.LocalAssetFile{
		writeAsset(t, dir, "app.zip", "fresh"),
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if len(res.Outcomes) != 1 || res.Outcomes[0].Action != release.AssetReplaced {
		t.Fatalf("Outcomes = %+v", res.Outcomes)
	}
	if len(res.Outcomes[0].Deleted) != 2 {
		t.Errorf("Deleted = %d, want 2", len(res.Outcomes[0].Deleted))
	}

	var names []string
	for _, a := range client.Assets(testRepo, rel.ID) {
		names = append(names, a.Name)
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"app.zip", "other.zip"}) {
		t.Errorf("remaining assets = %v", names)
	}

	ops := client.Ops()
	want := []releasetest.Op{
		releasetest.OpListAssets,
		releasetest.OpDeleteAsset,
		releasetest.OpDeleteAsset,
		releasetest.OpUploadAsset,
	}
	if !slices.Equal(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
}

func TestSync_EmptyFileSet(t *testing.T) {
	client := releasetest.NewClient()
	rel := client.AddRelease(testRepo, "1.0", "v1.0")

	s := release.NewSynchronizer(client, release.DefaultMimeTypes(), true)
	res, err := s.Sync(context.Background(), testRepo, rel, nil)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(res.Uploaded) != 0 || len(client.Calls()) != 0 {
		t.Errorf("empty set should make no calls, got %+v", client.Calls())
	}
}

func TestSync_FailsFast(t *testing.T) {
	dir := t.TempDir()
	client := releasetest.NewClient()
	rel := client.AddRelease(testRepo, "1.0", "v1.0")

	files := []release.LocalAssetFile{
		writeAsset(t, dir, "a.zip", "a"),
		writeAsset(t, dir, "notes.txt", "unmapped"),
		writeAsset(t, dir, "c.zip", "c"),
	}

	s := release.NewSynchronizer(client, release.DefaultMimeTypes(), false)
	res, err := s.Sync(context.Background(), testRepo, rel, files)

	if !rperrors.IsKind(err, rperrors.KindNotMapped) {
		t.Fatalf("Sync() error = %v, want not mapped", err)
	}
	if len(res.Uploaded) != 1 || res.Uploaded[0].Name != "a.zip" {
		t.Errorf("Uploaded before failure = %+v", res.Uploaded)
	}
	if _, ok := client.Uploaded("c.zip"); ok {
		t.Error("c.zip should not be processed after a failure")
	}
	if got := client.Assets(testRepo, rel.ID); len(got) != 1 {
		t.Errorf("earlier uploads should remain, got %+v", got)
	}
}

func TestSync_InvalidLocalFiles(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file release.LocalAssetFile
	}{
		{"empty path", release.LocalAssetFile{}},
		{"missing", release.NewLocalAssetFile(filepath.Join(dir, "missing.zip"))},
		{"directory", release.NewLocalAssetFile(dir)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := releasetest.NewClient()
			rel := client.AddRelease(testRepo, "1.0", "v1.0")

			s := release.NewSynchronizer(client, release.DefaultMimeTypes(), false)
			_, err := s.Sync(context.Background(), testRepo, rel, []release.LocalAssetFile{tt.file})
			if !rperrors.IsKind(err, rperrors.KindValidation) {
				t.Errorf("Sync() error = %v, want validation", err)
			}
			if len(client.Calls()) != 0 {
				t.Errorf("no remote calls expected, got %+v", client.Calls())
			}
		})
	}
}

func TestSync_RemoteFailures(t *testing.T) {
	tests := []struct {
		name      string
		failOp    releasetest.Op
		existing  []string
		overwrite bool
	}{
		{"list assets", releasetest.OpListAssets, nil, false},
		{"delete asset", releasetest.OpDeleteAsset, []string{"app.zip"}, true},
		{"upload", releasetest.OpUploadAsset, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			client := releasetest.NewClient()
			rel := client.AddRelease(testRepo, "1.0", "v1.0", tt.existing...)
			client.Fail(tt.failOp, errors.New("HTTP 500"))

			s := release.NewSynchronizer(client, release.DefaultMimeTypes(), tt.overwrite)
			_, err := s.Sync(context.Background(), testRepo, rel, []release.LocalAssetFile{
				writeAsset(t, dir, "app.zip", "x"),
			})
			if !rperrors.IsKind(err, rperrors.KindRemote) {
				t.Errorf("Sync() error = %v, want remote", err)
			}
		})
	}
}

func TestSync_ResolvesTypeAfterDelete(t *testing.T) {
	dir := t.TempDir()
	client := releasetest.NewClient()
	rel := client.AddRelease(testRepo, "1.0", "v1.0", "notes.txt")

	s := release.NewSynchronizer(client, release.DefaultMimeTypes(), true)
	_, err := s.Sync(context.Background(), testRepo, rel, []release.LocalAssetFile{
		writeAsset(t, dir, "notes.txt", "x"),
	})

	if !rperrors.IsKind(err, rperrors.KindNotMapped) {
		t.Fatalf("Sync() error = %v, want not mapped", err)
	}
	if got := client.Assets(testRepo, rel.ID); len(got) != 0 {
		t.Errorf("existing asset should already be deleted, got %+v", got)
	}
}
