// Package dryrun provides a release.Client that reads from the real service
// but only logs mutations.
package dryrun

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
)

// Client forwards list calls to the wrapped client and simulates every
// mutation. Simulated objects get negative IDs so they can never collide
// with remote ones.
type Client struct {
	next   release.Client
	logger *slog.Logger
	seq    atomic.Int64
}

var _ release.Client = (*Client)(nil)

// New wraps next. A nil logger uses slog.Default.
func New(next release.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{next: next, logger: logger.With("dry_run", true)}
}

func (c *Client) syntheticID() int64 {
	return -c.seq.Add(1)
}

// ListReleases implements release.Client.
func (c *Client) ListReleases(ctx context.Context, repo release.RepositoryRef) ([]release.RemoteRelease, error) {
	return c.next.ListReleases(ctx, repo)
}

// CreateRelease implements release.Client.
func (c *Client) CreateRelease(ctx context.Context, repo release.RepositoryRef, req release.CreateRequest) (release.RemoteRelease, error) {
	c.logger.Info("would create release", "repository", repo.String(), "name", req.Name, "tag", req.Tag,
		"draft", req.Draft, "prerelease", req.PreRelease)
	return release.RemoteRelease{
		ID:         c.syntheticID(),
		Name:       req.Name,
		TagName:    req.Tag,
		Draft:      req.Draft,
		PreRelease: req.PreRelease,
	}, nil
}

// DeleteRelease implements release.Client.
func (c *Client) DeleteRelease(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) error {
	c.logger.Info("would delete release", "repository", repo.String(), "name", rel.Name, "id", rel.ID)
	return nil
}

// ListAssets forwards to the wrapped client for real releases; a simulated
// release has no assets.
func (c *Client) ListAssets(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) ([]release.RemoteAsset, error) {
	if rel.ID < 0 {
		return nil, nil
	}
	return c.next.ListAssets(ctx, repo, rel)
}

// UploadAsset implements release.Client.
func (c *Client) UploadAsset(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease, file release.LocalAssetFile, contentType string) (release.RemoteAsset, error) {
	var size int64
	if info, err := os.Stat(file.Path); err == nil {
		size = info.Size()
	}
	c.logger.Info("would upload asset", "release", rel.Name, "asset", file.Name, "content_type", contentType, "size", size)
	return release.RemoteAsset{
		ID:          c.syntheticID(),
		Name:        file.Name,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// DeleteAsset implements release.Client.
func (c *Client) DeleteAsset(ctx context.Context, repo release.RepositoryRef, asset release.RemoteAsset) error {
	c.logger.Info("would delete asset", "asset", asset.Name, "id", asset.ID)
	return nil
}
