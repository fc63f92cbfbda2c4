// Package release provides the release reconciliation and asset
// synchronization engine: the decisions that reuse, replace, or create a
// release on the hosting service and the per-asset upload policy.
package release

import (
	"regexp"
	"strings"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// scmConnectionPattern recognizes SCM connection strings pointing at GitHub:
//
//	scm:git:https://github.com/owner/name.git
//	https://github.com/owner/name
//	git@github.com:owner/name.git/child/module
//
// The name segment excludes '.', so a trailing ".git" is never captured.
var scmConnectionPattern = regexp.MustCompile(
	`(?i)^(scm:git[:|])?` +
		`(https?://github\.com/|git@github\.com:)` +
		`([^/]+/[^/.]+)` +
		`(\.git)?` +
		`(/.*)?$`)

// RepositoryRef identifies a repository on the hosting service.
type RepositoryRef struct {
	Owner string
	Name  string
}

// String returns the owner/name form of the reference.
func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepositoryID extracts owner/name from an SCM connection string.
// Input that does not look like a GitHub connection string is returned
// unchanged, which makes the function idempotent on bare owner/name values.
func ParseRepositoryID(s string) (string, error) {
	if s == "" {
		return "", rperrors.Validation("release.ParseRepositoryID", "repository ID must not be empty")
	}

	m := scmConnectionPattern.FindStringSubmatch(s)
	if m == nil {
		return s, nil
	}
	return m[3], nil
}

// NewRepositoryRef splits an owner/name identifier.
func NewRepositoryRef(id string) (RepositoryRef, error) {
	const op = "release.NewRepositoryRef"

	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepositoryRef{}, rperrors.Validationf(op, "repository ID %q is not of the form owner/name", id)
	}
	return RepositoryRef{Owner: owner, Name: name}, nil
}

// ResolveRepository parses a connection string or bare identifier into a
// RepositoryRef.
func ResolveRepository(s string) (RepositoryRef, error) {
	id, err := ParseRepositoryID(s)
	if err != nil {
		return RepositoryRef{}, err
	}
	return NewRepositoryRef(id)
}
