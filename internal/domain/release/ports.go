package release

import (
	"context"
	"path/filepath"
)

// RemoteRelease is a release as observed on the hosting service.
type RemoteRelease struct {
	// ID is the service's opaque identity, used for update and delete calls.
	ID         int64
	Name       string
	TagName    string
	Draft      bool
	PreRelease bool
	URL        string
}

// RemoteAsset is an asset attached to a remote release.
type RemoteAsset struct {
	ID          int64
	Name        string
	ContentType string
	Size        int64
	DownloadURL string
}

// LocalAssetFile is a local file to be attached to a release.
type LocalAssetFile struct {
	Path string
	Name string
}

// NewLocalAssetFile builds a LocalAssetFile named after the base of path.
func NewLocalAssetFile(path string) LocalAssetFile {
	return LocalAssetFile{Path: path, Name: filepath.Base(path)}
}

// Client is the capability the engine needs from the hosting service.
// Implementations own authentication, pagination, retries and transport;
// every method blocks until the remote call completes.
type Client interface {
	// ListReleases returns the repository's releases in service order.
	ListReleases(ctx context.Context, repo RepositoryRef) ([]RemoteRelease, error)
	// CreateRelease creates a release from req.
	CreateRelease(ctx context.Context, repo RepositoryRef, req CreateRequest) (RemoteRelease, error)
	// DeleteRelease deletes rel.
	DeleteRelease(ctx context.Context, repo RepositoryRef, rel RemoteRelease) error
	// ListAssets returns the assets currently attached to rel.
	ListAssets(ctx context.Context, repo RepositoryRef, rel RemoteRelease) ([]RemoteAsset, error)
	// UploadAsset uploads file to rel under contentType.
	UploadAsset(ctx context.Context, repo RepositoryRef, rel RemoteRelease, file LocalAssetFile, contentType string) (RemoteAsset, error)
	// DeleteAsset deletes asset.
	DeleteAsset(ctx context.Context, repo RepositoryRef, asset RemoteAsset) error
}

// Policy controls how existing releases and assets are treated.
type Policy struct {
	// FailIfReleaseExists aborts when a release with the same name exists.
	FailIfReleaseExists bool
	// DeleteExistingRelease replaces a release with the same name.
	DeleteExistingRelease bool
	// OverwriteExistingAssets replaces assets with the same file name.
	OverwriteExistingAssets bool
	// ExcludePreReleases turns runs for pre-releases into no-ops.
	ExcludePreReleases bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{ExcludePreReleases: true}
}

// Excludes reports whether spec is gated out before any remote call.
func (p Policy) Excludes(spec Spec) bool {
	return spec.PreRelease() && p.ExcludePreReleases
}
