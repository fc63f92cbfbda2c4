// Package github implements release.Client on top of the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"os"

	gh "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// pageSize is the maximum page size accepted by the releases endpoints.
const pageSize = 100

// Options configures a Client.
type Options struct {
	// BaseURL and UploadURL point at a GitHub Enterprise installation.
	// Both empty means github.com.
	BaseURL   string
	UploadURL string

	Resilience ResilienceConfig
}

// Client is the GitHub implementation of release.Client.
type Client struct {
	gh  *gh.Client
	res *resilience
}

var _ release.Client = (*Client)(nil)

// New creates a Client authenticated with token.
func New(ctx context.Context, token string, opts Options) (*Client, error) {
	const op = "github.New"

	if token == "" {
		return nil, rperrors.Auth(op, "GitHub token is required (set GITHUB_TOKEN or configure github.token)")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewWithHTTPClient(oauth2.NewClient(ctx, ts), opts)
}

// NewWithHTTPClient creates a Client that sends requests through hc, which
// is expected to add authentication itself.
func NewWithHTTPClient(hc *http.Client, opts Options) (*Client, error) {
	const op = "github.New"

	client := gh.NewClient(hc)
	if opts.BaseURL != "" || opts.UploadURL != "" {
		upload := opts.UploadURL
		if upload == "" {
			upload = opts.BaseURL
		}
		var err error
		client, err = client.WithEnterpriseURLs(opts.BaseURL, upload)
		if err != nil {
			return nil, rperrors.ConfigWrap(err, op, "invalid GitHub Enterprise URL")
		}
	}
	return NewFromGitHub(client, opts.Resilience), nil
}

// NewFromGitHub wraps an already configured go-github client.
func NewFromGitHub(client *gh.Client, cfg ResilienceConfig) *Client {
	return &Client{gh: client, res: newResilience(cfg)}
}

// ListReleases implements release.Client, following pagination.
func (c *Client) ListReleases(ctx context.Context, repo release.RepositoryRef) ([]release.RemoteRelease, error) {
	var out []release.RemoteRelease
	opts := &gh.ListOptions{PerPage: pageSize}
	for {
		page, err := call(ctx, c.res, "list-releases", func(ctx context.Context) (pageOf[*gh.RepositoryRelease], error) {
			items, resp, err := c.gh.Repositories.ListReleases(ctx, repo.Owner, repo.Name, opts)
			return newPage(items, resp), err
		})
		if err != nil {
			return nil, fmt.Errorf("list releases of %s (page %d): %w", repo, max(opts.Page, 1), err)
		}
		for _, r := range page.items {
			out = append(out, toRemoteRelease(r))
		}
		if page.next == 0 {
			return out, nil
		}
		opts.Page = page.next
	}
}

// CreateRelease implements release.Client.
func (c *Client) CreateRelease(ctx context.Context, repo release.RepositoryRef, req release.CreateRequest) (release.RemoteRelease, error) {
	body := &gh.RepositoryRelease{
		TagName:    gh.String(req.Tag),
		Name:       gh.String(req.Name),
		Draft:      gh.Bool(req.Draft),
		Prerelease: gh.Bool(req.PreRelease),
	}
	if req.Description != "" {
		body.Body = gh.String(req.Description)
	}
	if req.Commitish != "" {
		body.TargetCommitish = gh.String(req.Commitish)
	}

	// Creation is not idempotent; a retried POST after a lost response
	// would produce a duplicate release.
	created, _, err := c.gh.Repositories.CreateRelease(ctx, repo.Owner, repo.Name, body)
	if err != nil {
		return release.RemoteRelease{}, fmt.Errorf("create release %s: %w", req.Name, err)
	}
	return toRemoteRelease(created), nil
}

// DeleteRelease implements release.Client.
func (c *Client) DeleteRelease(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) error {
	_, err := call(ctx, c.res, "delete-release", func(ctx context.Context) (*gh.Response, error) {
		return c.gh.Repositories.DeleteRelease(ctx, repo.Owner, repo.Name, rel.ID)
	})
	if err != nil {
		return fmt.Errorf("delete release %d: %w", rel.ID, err)
	}
	return nil
}

// ListAssets implements release.Client, following pagination.
func (c *Client) ListAssets(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease) ([]release.RemoteAsset, error) {
	var out []release.RemoteAsset
	opts := &gh.ListOptions{PerPage: pageSize}
	for {
		page, err := call(ctx, c.res, "list-assets", func(ctx context.Context) (pageOf[*gh.ReleaseAsset], error) {
			items, resp, err := c.gh.Repositories.ListReleaseAssets(ctx, repo.Owner, repo.Name, rel.ID, opts)
			return newPage(items, resp), err
		})
		if err != nil {
			return nil, fmt.Errorf("list assets of release %d (page %d): %w", rel.ID, max(opts.Page, 1), err)
		}
		for _, a := range page.items {
			out = append(out, toRemoteAsset(a))
		}
		if page.next == 0 {
			return out, nil
		}
		opts.Page = page.next
	}
}

// UploadAsset implements release.Client. The file is reopened for every
// attempt so a retry never sends a partially consumed body.
func (c *Client) UploadAsset(ctx context.Context, repo release.RepositoryRef, rel release.RemoteRelease, file release.LocalAssetFile, contentType string) (release.RemoteAsset, error) {
	uploaded, err := call(ctx, c.res, "upload-asset", func(ctx context.Context) (*gh.ReleaseAsset, error) {
		f, err := os.Open(file.Path) // #nosec G304 -- asset paths come from user configuration
		if err != nil {
			return nil, err
		}
		defer f.Close()

		opts := &gh.UploadOptions{Name: file.Name, MediaType: contentType}
		asset, _, err := c.gh.Repositories.UploadReleaseAsset(ctx, repo.Owner, repo.Name, rel.ID, opts, f)
		return asset, err
	})
	if err != nil {
		return release.RemoteAsset{}, fmt.Errorf("upload asset %s: %w", file.Name, err)
	}
	return toRemoteAsset(uploaded), nil
}

// DeleteAsset implements release.Client.
func (c *Client) DeleteAsset(ctx context.Context, repo release.RepositoryRef, asset release.RemoteAsset) error {
	_, err := call(ctx, c.res, "delete-asset", func(ctx context.Context) (*gh.Response, error) {
		return c.gh.Repositories.DeleteReleaseAsset(ctx, repo.Owner, repo.Name, asset.ID)
	})
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", asset.Name, err)
	}
	return nil
}

type pageOf[T any] struct {
	items []T
	next  int
}

func newPage[T any](items []T, resp *gh.Response) pageOf[T] {
	p := pageOf[T]{items: items}
	if resp != nil {
		p.next = resp.NextPage
	}
	return p
}

func toRemoteRelease(r *gh.RepositoryRelease) release.RemoteRelease {
	return release.RemoteRelease{
		ID:         r.GetID(),
		Name:       r.GetName(),
		TagName:    r.GetTagName(),
		Draft:      r.GetDraft(),
		PreRelease: r.GetPrerelease(),
		URL:        r.GetHTMLURL(),
	}
}

func toRemoteAsset(a *gh.ReleaseAsset) release.RemoteAsset {
	return release.RemoteAsset{
		ID:          a.GetID(),
		Name:        a.GetName(),
		ContentType: a.GetContentType(),
		Size:        int64(a.GetSize()),
		DownloadURL: a.GetBrowserDownloadURL(),
	}
}
