// Package releasetest provides an in-memory release.Client for tests.
package releasetest

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
)

// Op names a Client method.
type Op string

const (
	OpListReleases  Op = "ListReleases"
	OpCreateRelease Op = "CreateRelease"
	OpDeleteRelease Op = "DeleteRelease"
	OpListAssets    Op = "ListAssets"
	OpUploadAsset   Op = "UploadAsset"
	OpDeleteAsset   Op = "DeleteAsset"
)

// Mutating reports whether op changes remote state.
func (o Op) Mutating() bool {
	switch o {
	case OpCreateRelease, OpDeleteRelease, OpUploadAsset, OpDeleteAsset:
		return true
	default:
		return false
	}
}

// Call is a recorded Client invocation.
type Call struct {
	Op     Op
	Repo   string
	Target string
}

type storedRelease struct {
	release.RemoteRelease
	assets []release.RemoteAsset
}

// Client is an in-memory release.Client. It records every call and can be
// told to fail a given operation. Safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	nextID   int64
	releases map[string][]*storedRelease
	calls    []Call
	failures map[Op]error
	// Uploads holds the bytes read from each uploaded file, keyed by asset name.
	uploads map[string][]byte
}

var _ release.Client = (*Client)(nil)

// NewClient returns an empty Client.
func NewClient() *Client {
	return &Client{
		nextID:   100,
		releases: make(map[string][]*storedRelease),
		failures: make(map[Op]error),
		uploads:  make(map[string][]byte),
	}
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (c *Client) Fail(op Op, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, op)
		return
	}
	c.failures[op] = err
}

// AddRelease seeds a release with the given asset names.
func (c *Client) AddRelease(repo release.RepositoryRef, name, tag string, assetNames ...string) release.RemoteRelease {
	c.mu.Lock()
	defer c.mu.Unlock()

	sr := &storedRelease{RemoteRelease: release.RemoteRelease{
		ID:      c.id(),
		Name:    name,
		TagName: tag,
		URL:     fmt.Sprintf("https://github.com/%s/releases/tag/%s", repo, tag),
	}}
	for _, n := range assetNames {
		sr.assets = append(sr.assets, release.RemoteAsset{ID: c.id(), Name: n, ContentType: "application/octet-stream"})
	}
	c.releases[repo.String()] = append(c.releases[repo.String()], sr)
	return sr.RemoteRelease
}

// Releases returns the releases currently stored for repo.
func (c *Client) Releases(repo release.RepositoryRef) []release.RemoteRelease {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []release.RemoteRelease
	for _, sr := range c.releases[repo.String()] {
		out = append(out, sr.RemoteRelease)
	}
	return out
}

// Assets returns the assets currently attached to the release with id.
func (c *Client) Assets(repo release.RepositoryRef, id int64) []release.RemoteAsset {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sr := c.find(repo, id); sr != nil {
		return slices.Clone(sr.assets)
	}
	return nil
}

// Uploaded returns the content uploaded under name.
func (c *Client) Uploaded(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.uploads[name]
	return b, ok
}

// Calls returns the recorded calls in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// Ops returns the operations of the recorded calls in order.
func (c *Client) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]Op, 0, len(c.calls))
	for _, call := range c.calls {
		ops = append(ops, call.Op)
	}
	return ops
}

// MutatingCalls returns the recorded calls that change remote state.
func (c *Client) MutatingCalls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if call.Op.Mutating() {
			out = append(out, call)
		}
	}
	return out
}

// ListReleases implements release.Client.
func (c *Client) ListReleases(ctx context.Context, repo release.RepositoryRef) ([]release.RemoteRelease, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(ctx, OpListReleases, repo, ""); err != nil {
		return nil, err
	}
	var out []release.RemoteRelease
	for _, sr := range c.releases[repo.String()] {
		out = append(out, sr.RemoteRelease)
	}
	return out, nil
}

// CreateRelease implements release.Client.
func (c *Client) CreateRelease(ctx context.Context, repo release.RepositoryRef, req release.CreateRequest) (release.RemoteRelease, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(ctx, OpCreateRelease, repo, req.Name); err != nil {
		return release.RemoteRelease{}, err
	}
	sr := &storedRelease{RemoteRelease: release.RemoteRelease{
		ID:         c.id(),
		Name:       req.Name,
		TagName:    req.Tag,
		Draft:      req.Draft,
		PreRelease: req.PreRelease,
		URL:        fmt.Sprintf("https://github.com/%s/releases/tag/%s", repo, req.Tag),
	}}
	c.releases[repo.String()] = append(c.releases[repo.String()], sr)
	return sr.RemoteRelease, nil
}

// DeleteRelease implements release.Client.
func (c *Client) DeleteRelease(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(ctx, OpDeleteRelease, repo, rel.Name); err != nil {
		return err
	}
	key := repo.String()
	c.releases[key] = slices.DeleteFunc(c.releases[key], func(sr *storedRelease) bool {
		return sr.ID == rel.ID
	})
	return nil
}

// ListAssets implements release.Client.
func (c *Client) ListAssets(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) ([]release.RemoteAsset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(ctx, OpListAssets, repo, rel.Name); err != nil {
		return nil, err
	}
	sr := c.find(repo, rel.ID)
	if sr == nil {
		return nil, fmt.Errorf("release %d not found", rel.ID)
	}
	return slices.Clone(sr.assets), nil
}

// UploadAsset implements release.Client. The file is read so tests can
// inspect what would have been sent.
func (c *Client) UploadAsset(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease, file release.LocalAssetFile, contentType string) (release.RemoteAsset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(ctx, OpUploadAsset, repo, file.Name); err != nil {
		return release.RemoteAsset{}, err
	}
	sr := c.find(repo, rel.ID)
	if sr == nil {
		return release.RemoteAsset{}, fmt.Errorf("release %d not found", rel.ID)
	}
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return release.RemoteAsset{}, err
	}
	asset := release.RemoteAsset{
		ID:          c.id(),
		Name:        file.Name,
		ContentType: contentType,
		Size:        int64(len(data)),
		DownloadURL: fmt.Sprintf("https://github.com/%s/releases/download/%s/%s", repo, rel.TagName, file.Name),
	}
	sr.assets = append(sr.assets, asset)
	c.uploads[file.Name] = data
	return asset, nil
}

// DeleteAsset implements release.Client.
func (c *Client) DeleteAsset(ctx context.Context, repo release.RepositoryRef, asset release.RemoteAsset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.record(ctx, OpDeleteAsset, repo, asset.Name); err != nil {
		return err
	}
	for _, sr := range c.releases[repo.String()] {
		sr.assets = slices.DeleteFunc(sr.assets, func(a release.RemoteAsset) bool {
			return a.ID == asset.ID
		})
	}
	return nil
}

func (c *Client) record(ctx context.Context, op Op, repo release.RepositoryRef, target string) error {
	c.calls = append(c.calls, Call{Op: op, Repo: repo.String(), Target: target})
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.failures[op]
}

func (c *Client) find(repo release.RepositoryRef, id int64) *storedRelease {
	for _, sr := range c.releases[repo.String()] {
		if sr.ID == id {
			return sr
		}
	}
	return nil
}

func (c *Client) id() int64 {
	c.nextID++
	return c.nextID
}
