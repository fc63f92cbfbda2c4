package release

import (
	"context"
	"fmt"
	"os"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// AssetAction records what happened to a single local file.
type AssetAction string

const (
	// AssetUploaded means no asset with the file's name existed.
	AssetUploaded AssetAction = "uploaded"
	// AssetReplaced means existing assets with the name were deleted first.
	AssetReplaced AssetAction = "replaced"
	// AssetSkipped means an asset with the name existed and overwrite was off.
	AssetSkipped AssetAction = "skipped"
)

// AssetOutcome is the per-file result of a synchronization.
type AssetOutcome struct {
	File        LocalAssetFile
	Action      AssetAction
	ContentType string
	// Asset is the uploaded asset; nil when the file was skipped.
	Asset *RemoteAsset
	// Deleted lists remote assets removed before the upload.
	Deleted []RemoteAsset
}

// SyncResult collects the outcome of a synchronization. On error it holds
// the outcomes of the files processed before the failure.
type SyncResult struct {
	Uploaded []RemoteAsset
	Outcomes []AssetOutcome
}

// Skipped returns the outcomes of files that were not uploaded.
func (r SyncResult) Skipped() []AssetOutcome {
	var out []AssetOutcome
	for _, o := range r.Outcomes {
		if o.Action == AssetSkipped {
			out = append(out, o)
		}
	}
	return out
}

// Synchronizer uploads local files to a release, skipping or replacing
// assets that already exist under the same file name.
type Synchronizer struct {
	client    Client
	mimeTypes MimeTypeMap
	overwrite bool
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(client Client, mimeTypes MimeTypeMap, overwrite bool) *Synchronizer {
	return &Synchronizer{client: client, mimeTypes: mimeTypes, overwrite: overwrite}
}

// Sync processes files in order and stops at the first error. Files that
// were uploaded before the failure stay on the release.
func (s *Synchronizer) Sync(ctx context.Context, repo RepositoryRef, rel RemoteRelease, files []LocalAssetFile) (SyncResult, error) {
	var result SyncResult
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, rperrors.Wrap(err, rperrors.KindCanceled, "release.SyncAssets", "asset synchronization canceled")
		}

		outcome, err := s.syncOne(ctx, repo, rel, f)
		if err != nil {
			return result, err
		}
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Asset != nil {
			result.Uploaded = append(result.Uploaded, *outcome.Asset)
		}
	}
	return result, nil
}

func (s *Synchronizer) syncOne(ctx context.Context, repo RepositoryRef, rel RemoteRelease, f LocalAssetFile) (AssetOutcome, error) {
	const op = "release.SyncAssets"

	if err := validateLocalFile(f); err != nil {
		return AssetOutcome{}, err
	}

	assets, err := s.client.ListAssets(ctx, repo, rel)
	if err != nil {
		return AssetOutcome{}, rperrors.RemoteWrap(err, op,
			fmt.Sprintf("failed to list existing assets of release %s", rel.Name))
	}

	var existing []RemoteAsset
	for _, a := range assets {
		if a.Name == f.Name {
			existing = append(existing, a)
		}
	}

	outcome := AssetOutcome{File: f, Action: AssetUploaded}
	if len(existing) > 0 {
		if !s.overwrite {
			outcome.Action = AssetSkipped
			return outcome, nil
		}
		for _, a := range existing {
			if err := s.client.DeleteAsset(ctx, repo, a); err != nil {
				return AssetOutcome{}, rperrors.RemoteWrap(err, op,
					fmt.Sprintf("failed to delete existing asset %s", a.Name)).
					WithDetail("asset_id", a.ID)
			}
			outcome.Deleted = append(outcome.Deleted, a)
		}
		outcome.Action = AssetReplaced
	}

	contentType, err := s.mimeTypes.Resolve(f.Name)
	if err != nil {
		return AssetOutcome{}, err
	}
	outcome.ContentType = contentType

	uploaded, err := s.client.UploadAsset(ctx, repo, rel, f, contentType)
	if err != nil {
		return AssetOutcome{}, rperrors.RemoteWrap(err, op,
			fmt.Sprintf("failed to upload asset %s", f.Name))
	}
	outcome.Asset = &uploaded
	return outcome, nil
}

func validateLocalFile(f LocalAssetFile) error {
	const op = "release.SyncAssets"

	if f.Path == "" {
		return rperrors.Validation(op, "asset file path must not be empty")
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		return rperrors.Validationf(op, "asset file %s does not exist", f.Path)
	}
	if info.IsDir() {
		return rperrors.Validationf(op, "asset file %s is a directory", f.Path)
	}
	return nil
}
