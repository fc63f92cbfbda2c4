package observability

import (
	"context"
	"time"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
)

// InstrumentedClient records every call of the wrapped client in Metrics.
type InstrumentedClient struct {
	next    release.Client
	metrics *Metrics
	now     func() time.Time
}

var _ release.Client = (*InstrumentedClient)(nil)

// Instrument wraps next.
func Instrument(next release.Client, m *Metrics) *InstrumentedClient {
	return &InstrumentedClient{next: next, metrics: m, now: time.Now}
}

func (c *InstrumentedClient) observe(op string, start time.Time, err error) {
	c.metrics.RecordCall(op, err, c.now().Sub(start))
}

// ListReleases implements release.Client.
func (c *InstrumentedClient) ListReleases(ctx context.Context, repo release.RepositoryRef) ([]release.RemoteRelease, error) {
	start := c.now()
	out, err := c.next.ListReleases(ctx, repo)
	c.observe("list_releases", start, err)
	return out, err
}

// CreateRelease implements release.Client.
func (c *InstrumentedClient) CreateRelease(ctx context.Context, repo release.RepositoryRef, req release.CreateRequest) (release.RemoteRelease, error) {
	start := c.now()
	out, err := c.next.CreateRelease(ctx, repo, req)
	c.observe("create_release", start, err)
	return out, err
}

// DeleteRelease implements release.Client.
func (c *InstrumentedClient) DeleteRelease(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) error {
	start := c.now()
	err := c.next.DeleteRelease(ctx, repo, rel)
	c.observe("delete_release", start, err)
	return err
}

// ListAssets implements release.Client.
func (c *InstrumentedClient) ListAssets(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) ([]release.RemoteAsset, error) {
	start := c.now()
	out, err := c.next.ListAssets(ctx, repo, rel)
	c.observe("list_assets", start, err)
	return out, err
}

// UploadAsset implements release.Client.
func (c *InstrumentedClient) UploadAsset(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease, file release.LocalAssetFile, contentType string) (release.RemoteAsset, error) {
	start := c.now()
	out, err := c.next.UploadAsset(ctx, repo, rel, file, contentType)
	c.observe("upload_asset", start, err)
	return out, err
}

// DeleteAsset implements release.Client.
func (c *InstrumentedClient) DeleteAsset(ctx context.Context, repo release.RepositoryRef, asset release.RemoteAsset) error {
	start := c.now()
	err := c.next.DeleteAsset(ctx, repo, asset)
	c.observe("delete_asset", start, err)
	return err
}
