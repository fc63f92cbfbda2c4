package dryrun

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
	"github.com/relicta-tech/ghrelease/internal/domain/release/releasetest"
)

var widget = release.RepositoryRef{Owner: "acme", Name: "widget"}

func TestClient_MutationsAreSimulated(t *testing.T) {
	inner := releasetest.NewClient()
	existing := inner.AddRelease(widget, "1.0", "v1.0", "a.zip")

	var logs bytes.Buffer
	c := New(inner, slog.New(slog.NewTextHandler(&logs, nil)))
	ctx := context.Background()

	created, err := c.CreateRelease(ctx, widget, release.CreateRequest{Tag: "v2.0", Name: "2.0"})
	require.NoError(t, err)
	assert.Less(t, created.ID, int64(0))
	assert.Equal(t, "2.0", created.Name)

	require.NoError(t, c.DeleteRelease(ctx, widget, existing))

	path := filepath.Join(t.TempDir(), "b.zip")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))
	asset, err := c.UploadAsset(ctx, widget, existing, release.NewLocalAssetFile(path), "application/zip")
	require.NoError(t, err)
	assert.Equal(t, int64(5), asset.Size)
	assert.NotEqual(t, created.ID, asset.ID)

	require.NoError(t, c.DeleteAsset(ctx, widget, release.RemoteAsset{ID: 1, Name: "a.zip"}))

	assert.Empty(t, inner.MutatingCalls())
	assert.Len(t, inner.Releases(widget), 1)
	assert.Contains(t, logs.String(), "would create release")
	assert.Contains(t, logs.String(), "dry_run=true")
}

func TestClient_ListsPassThrough(t *testing.T) {
	inner := releasetest.NewClient()
	existing := inner.AddRelease(widget, "1.0", "v1.0", "a.zip")
	c := New(inner, nil)
	ctx := context.Background()

	releases, err := c.ListReleases(ctx, widget)
	require.NoError(t, err)
	assert.Len(t, releases, 1)

	assets, err := c.ListAssets(ctx, widget, existing)
	require.NoError(t, err)
	assert.Len(t, assets, 1)

	simulated, err := c.ListAssets(ctx, widget, release.RemoteRelease{ID: -1})
	require.NoError(t, err)
	assert.Empty(t, simulated)
}

func TestClient_DrivesReconcileWithoutMutation(t *testing.T) {
	inner := releasetest.NewClient()
	inner.AddRelease(widget, "1.0", "v1.0")
	c := New(inner, nil)

	spec, err := release.NewSpec(release.SpecInput{Tag: "v1.0", Name: "1.0"})
	require.NoError(t, err)

	res, err := release.NewReconciler(c, release.Policy{DeleteExistingRelease: true}).Reconcile(context.Background(), widget, spec)
	require.NoError(t, err)
	assert.Equal(t, release.ActionReplaced, res.Action)
	assert.Empty(t, inner.MutatingCalls())
}
