package release

import (
	"context"
	"fmt"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// ReconcileAction records which branch of the reconciliation was taken.
type ReconcileAction string

const (
	// ActionCreated means no release with the requested name existed.
	ActionCreated ReconcileAction = "created"
	// ActionReused means an existing release was kept as-is.
	ActionReused ReconcileAction = "reused"
	// ActionReplaced means an existing release was deleted and recreated.
	ActionReplaced ReconcileAction = "replaced"
)

// ReconcileResult is the release that asset synchronization should target.
type ReconcileResult struct {
	Release RemoteRelease
	Action  ReconcileAction
	// Previous is the release that was deleted when Action is ActionReplaced.
	Previous *RemoteRelease
}

// FindReleaseByName returns the first release whose name equals name
// exactly. Tags are not consulted.
func FindReleaseByName(releases []RemoteRelease, name string) (RemoteRelease, bool) {
	for _, r := range releases {
		if r.Name == name {
			return r, true
		}
	}
	return RemoteRelease{}, false
}

// Reconciler finds, reuses, replaces, or creates the release described by
// a Spec according to a Policy.
type Reconciler struct {
	client Client
	policy Policy
}

// NewReconciler creates a Reconciler.
func NewReconciler(client Client, policy Policy) *Reconciler {
	return &Reconciler{client: client, policy: policy}
}

// Reconcile brings the remote release named by spec in line with the policy.
//
// When a release with the same name exists, FailIfReleaseExists aborts with
// a conflict before any mutation, DeleteExistingRelease deletes it and
// creates a fresh one, and otherwise the existing release is reused without
// modification. The existing release is always deleted before the new one
// is created, so a failed create leaves no release behind.
func (r *Reconciler) Reconcile(ctx context.Context, repo RepositoryRef, spec Spec) (ReconcileResult, error) {
	const op = "release.Reconcile"

	if err := ctx.Err(); err != nil {
		return ReconcileResult{}, rperrors.Wrap(err, rperrors.KindCanceled, op, "reconciliation canceled")
	}

	releases, err := r.client.ListReleases(ctx, repo)
	if err != nil {
		return ReconcileResult{}, rperrors.RemoteWrap(err, op, "failed to list releases of "+repo.String())
	}

	existing, found := FindReleaseByName(releases, spec.Name())
	if !found {
		created, err := r.create(ctx, repo, spec)
		if err != nil {
			return ReconcileResult{}, err
		}
		return ReconcileResult{Release: created, Action: ActionCreated}, nil
	}

	if r.policy.FailIfReleaseExists {
		return ReconcileResult{}, rperrors.Conflict(op,
			fmt.Sprintf("release with name %s already exists in %s", spec.Name(), repo)).
			WithDetail("release_id", existing.ID).
			WithDetail("release_name", existing.Name)
	}

	if !r.policy.DeleteExistingRelease {
		return ReconcileResult{Release: existing, Action: ActionReused}, nil
	}

	if err := r.client.DeleteRelease(ctx, repo, existing); err != nil {
		return ReconcileResult{}, rperrors.RemoteWrap(err, op,
			fmt.Sprintf("failed to delete existing release %s", existing.Name)).
			WithDetail("release_id", existing.ID)
	}

	created, err := r.create(ctx, repo, spec)
	if err != nil {
		if e, ok := err.(*rperrors.Error); ok {
			e.WithDetail("deleted_release", existing.Name)
		}
		return ReconcileResult{}, err
	}

	prev := existing
	return ReconcileResult{Release: created, Action: ActionReplaced, Previous: &prev}, nil
}

func (r *Reconciler) create(ctx context.Context, repo RepositoryRef, spec Spec) (RemoteRelease, error) {
	created, err := r.client.CreateRelease(ctx, repo, spec.CreateRequest())
	if err != nil {
		return RemoteRelease{}, rperrors.RemoteWrap(err, "release.Reconcile",
			fmt.Sprintf("failed to create release %s for tag %s", spec.Name(), spec.Tag()))
	}
	return created, nil
}
