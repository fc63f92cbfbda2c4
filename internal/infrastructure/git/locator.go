// Package git locates the hosting repository of the current working tree.
package git

import (
	"context"
	"errors"
	"time"

	gogit "github.com/go-git/go-git/v5"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// DefaultRemote is the remote consulted when none is configured.
const DefaultRemote = "origin"

// DefaultLocalTimeout bounds local repository reads.
const DefaultLocalTimeout = 30 * time.Second

// withLocalTimeout applies a timeout unless ctx already has a shorter deadline.
func withLocalTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultLocalTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultLocalTimeout)
}

// Locator reads a remote URL from the git repository containing dir.
type Locator struct {
	dir    string
	remote string
}

// NewLocator creates a Locator. An empty remote means DefaultRemote.
func NewLocator(dir, remote string) *Locator {
	if remote == "" {
		remote = DefaultRemote
	}
	return &Locator{dir: dir, remote: remote}
}

// OriginURL returns the first URL of the configured remote.
func (l *Locator) OriginURL(ctx context.Context) (string, error) {
	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()
	return RemoteURL(ctx, l.dir, l.remote)
}

// RemoteURL opens the repository containing dir, searching parent
// directories for .git, and returns the first URL of the named remote.
func RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	const op = "git.RemoteURL"

	if err := ctx.Err(); err != nil {
		return "", rperrors.Wrap(err, rperrors.KindCanceled, op, "repository lookup canceled")
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", rperrors.Wrap(err, rperrors.KindNotFound, op, "no git repository found at "+dir)
		}
		return "", rperrors.IOWrap(err, op, "failed to open git repository at "+dir)
	}

	r, err := repo.Remote(remote)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return "", rperrors.Wrap(err, rperrors.KindNotFound, op, "remote "+remote+" not found")
		}
		return "", rperrors.IOWrap(err, op, "failed to read remote "+remote)
	}

	urls := r.Config().URLs
	if len(urls) == 0 || urls[0] == "" {
		return "", rperrors.NotFound(op, "remote "+remote+" has no URL")
	}
	return urls[0], nil
}
