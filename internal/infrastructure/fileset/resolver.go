// Package fileset expands configured asset directories and glob patterns
// into the ordered list of files to upload.
package fileset

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// Set is one directory with include and exclude patterns. Patterns use
// gitignore syntax and are matched against slash-separated paths relative
// to Directory. Empty Includes selects every file.
type Set struct {
	Directory string
	Includes  []string
	Excludes  []string
}

// Resolver walks file sets on a billy filesystem.
type Resolver struct {
	fs   billy.Filesystem
	sets []Set
	// local is set when fs is the OS filesystem.
	local bool
}

// NewResolver resolves sets relative to baseDir on the local filesystem.
func NewResolver(baseDir string, sets []Set) *Resolver {
	r := NewResolverFS(osfs.New(baseDir), sets)
	r.local = true
	return r
}

// NewResolverFS resolves sets on fs.
func NewResolverFS(fs billy.Filesystem, sets []Set) *Resolver {
	return &Resolver{fs: fs, sets: sets}
}

// Resolve returns the matching files. Files of each set are sorted by
// relative path; sets are concatenated in order.
func (r *Resolver) Resolve(ctx context.Context) ([]release.LocalAssetFile, error) {
	var out []release.LocalAssetFile
	for _, set := range r.sets {
		files, err := r.resolveSet(ctx, set)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func (r *Resolver) resolveSet(ctx context.Context, set Set) ([]release.LocalAssetFile, error) {
	const op = "fileset.Resolve"

	dirFS, err := r.open(set.Directory)
	if err != nil {
		return nil, err
	}

	includes := compile(set.Includes)
	excludes := compile(set.Excludes)

	var matched []string
	err = util.Walk(dirFS, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == "." {
			return nil
		}

		rel := filepath.ToSlash(p)
		parts := strings.Split(rel, "/")
		if info.IsDir() {
			if excludes != nil && excludes.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
			return nil
		}
		if includes != nil && !includes.Match(parts, false) {
			return nil
		}
		if excludes != nil && excludes.Match(parts, false) {
			return nil
		}
		matched = append(matched, rel)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, rperrors.Wrap(ctxErr, rperrors.KindCanceled, op, "asset resolution canceled")
		}
		return nil, rperrors.IOWrap(err, op, "failed to walk asset directory "+set.Directory)
	}

	slices.Sort(matched)
	files := make([]release.LocalAssetFile, 0, len(matched))
	for _, rel := range matched {
		files = append(files, release.LocalAssetFile{
			Path: filepath.Join(dirFS.Root(), filepath.FromSlash(rel)),
			Name: path.Base(rel),
		})
	}
	return files, nil
}

// open returns a filesystem rooted at dir. Absolute directories on an
// OS-backed resolver get their own root.
func (r *Resolver) open(dir string) (billy.Filesystem, error) {
	const op = "fileset.Resolve"

	if dir == "" {
		return nil, rperrors.Validation(op, "asset directory must not be empty")
	}

	if r.local && filepath.IsAbs(dir) {
		return statRoot(osfs.New(dir), dir)
	}

	info, err := r.fs.Stat(dir)
	if err != nil {
		return nil, rperrors.IOWrap(err, op, "asset directory "+dir+" does not exist")
	}
	if !info.IsDir() {
		return nil, rperrors.IO(op, "asset directory "+dir+" is not a directory")
	}
	return r.fs.Chroot(dir)
}

func statRoot(fs billy.Filesystem, dir string) (billy.Filesystem, error) {
	const op = "fileset.Resolve"

	info, err := os.Stat(dir)
	if err != nil {
		return nil, rperrors.IOWrap(err, op, "asset directory "+dir+" does not exist")
	}
	if !info.IsDir() {
		return nil, rperrors.IO(op, "asset directory "+dir+" is not a directory")
	}
	return fs, nil
}

func compile(patterns []string) gitignore.Matcher {
	if len(patterns) == 0 {
		return nil
	}
	ps := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(ps)
}
