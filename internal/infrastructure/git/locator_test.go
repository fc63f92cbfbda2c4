package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

func initRepo(t *testing.T, remotes map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	for name, url := range remotes {
		if _, err := repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
			t.Fatalf("CreateRemote(%s) error = %v", name, err)
		}
	}
	return dir
}

func TestLocator_OriginURL(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"origin":   "git@github.com:acme/widget.git",
		"upstream": "https://github.com/upstream/widget.git",
	})

	got, err := NewLocator(dir, "").OriginURL(context.Background())
	if err != nil {
		t.Fatalf("OriginURL() error = %v", err)
	}
	if got != "git@github.com:acme/widget.git" {
		t.Errorf("OriginURL() = %q", got)
	}

	got, err = NewLocator(dir, "upstream").OriginURL(context.Background())
	if err != nil {
		t.Fatalf("OriginURL(upstream) error = %v", err)
	}
	if got != "https://github.com/upstream/widget.git" {
		t.Errorf("OriginURL(upstream) = %q", got)
	}
}

func TestLocator_DetectsParentRepository(t *testing.T) {
	dir := initRepo(t, map[string]string{"origin": "https://github.com/acme/widget"})
	sub := filepath.Join(dir, "modules", "core")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	got, err := NewLocator(sub, "").OriginURL(context.Background())
	if err != nil {
		t.Fatalf("OriginURL() error = %v", err)
	}
	if got != "https://github.com/acme/widget" {
		t.Errorf("OriginURL() = %q", got)
	}
}

func TestRemoteURL_Errors(t *testing.T) {
	noRemote := initRepo(t, nil)

	tests := []struct {
		name string
		dir  string
		kind rperrors.Kind
	}{
		{"not a repository", t.TempDir(), rperrors.KindNotFound},
		{"missing remote", noRemote, rperrors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RemoteURL(context.Background(), tt.dir, DefaultRemote)
			if got := rperrors.GetKind(err); got != tt.kind {
				t.Errorf("RemoteURL() kind = %v, want %v (err = %v)", got, tt.kind, err)
			}
		})
	}
}

func TestRemoteURL_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RemoteURL(ctx, t.TempDir(), DefaultRemote)
	if !rperrors.IsKind(err, rperrors.KindCanceled) {
		t.Errorf("RemoteURL() error = %v, want canceled", err)
	}
}

func TestWithLocalTimeout(t *testing.T) {
	short, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ctx, done := withLocalTimeout(short)
	defer done()
	if ctx != short {
		t.Error("a shorter parent deadline should be kept")
	}

	ctx, done2 := withLocalTimeout(context.Background())
	defer done2()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected a deadline to be applied")
	}
}
