// Package publish provides the use case that publishes a GitHub release and
// synchronizes its assets.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relicta-tech/ghrelease/internal/domain/release"
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
	"github.com/relicta-tech/ghrelease/internal/fileutil"
)

// ClientFactory builds the hosting service client. It is invoked only after
// the pre-release gate has passed, so credentials are not required for
// excluded runs.
type ClientFactory func(ctx context.Context) (release.Client, error)

// AssetResolver expands the configured asset sets into an ordered file list.
type AssetResolver interface {
	Resolve(ctx context.Context) ([]release.LocalAssetFile, error)
}

// RepositoryLocator finds the repository connection string when none is
// configured.
type RepositoryLocator interface {
	OriginURL(ctx context.Context) (string, error)
}

// Input represents the input for the publish use case.
type Input struct {
	// Repository is an SCM connection string or owner/name. Empty means
	// "ask the RepositoryLocator".
	Repository string

	Tag             string
	Name            string
	Description     string
	DescriptionFile string
	Commitish       string
	Draft           bool

	PreRelease         *bool
	PreReleaseStrategy release.PreReleaseStrategy

	Policy    release.Policy
	MimeTypes release.MimeTypeMap
}

// Validate validates the Input.
func (i *Input) Validate() error {
	const op = "publish.Validate"

	if i.Tag == "" {
		return rperrors.Validation(op, "tag is required")
	}
	if i.Name == "" {
		return rperrors.Validation(op, "release name is required")
	}
	if !release.ValidPreReleaseStrategy(string(i.PreReleaseStrategy)) {
		return rperrors.Validationf(op, "unknown pre-release strategy %q", i.PreReleaseStrategy)
	}
	return nil
}

// Output represents the output of the publish use case.
type Output struct {
	RunID      string
	Repository release.RepositoryRef
	Tag        string
	PreRelease bool

	// Excluded is set when the pre-release gate stopped the run before any
	// remote call.
	Excluded bool

	Release release.RemoteRelease
	Action  release.ReconcileAction
	Assets  release.SyncResult

	Duration time.Duration
}

// Service implements the publish use case.
type Service struct {
	newClient ClientFactory
	assets    AssetResolver
	locator   RepositoryLocator
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.With("usecase", "publish")
		}
	}
}

// WithRepositoryLocator sets the fallback used when Input.Repository is empty.
func WithRepositoryLocator(l RepositoryLocator) Option {
	return func(s *Service) { s.locator = l }
}

// NewService creates a new Service.
func NewService(newClient ClientFactory, assets AssetResolver, opts ...Option) *Service {
	s := &Service{
		newClient: newClient,
		assets:    assets,
		logger:    slog.Default().With("usecase", "publish"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs the publish use case: gate, resolve the repository,
// reconcile the release, then synchronize assets. It stops at the first
// error; remote changes made before the error are not rolled back.
//
// Once the client has been built, a failing run still returns its Output
// alongside the error, carrying the reconciled release and action and the
// assets uploaded before the failure. Earlier failures return a nil Output.
func (s *Service) Execute(ctx context.Context, input Input) (*Output, error) {
	start := s.now()
	out := &Output{RunID: uuid.NewString(), Tag: input.Tag}
	logger := s.logger.With("run_id", out.RunID, "tag", input.Tag)

	if err := input.Validate(); err != nil {
		return nil, err
	}

	spec, err := release.NewSpec(input.specInput(""))
	if err != nil {
		return nil, err
	}
	out.PreRelease = spec.PreRelease()

	if input.Policy.Excludes(spec) {
		logger.Info("skipping pre-release, pre-releases are excluded", "name", spec.Name())
		out.Excluded = true
		out.Duration = s.now().Sub(start)
		return out, nil
	}

	repo, err := s.resolveRepository(ctx, input.Repository)
	if err != nil {
		return nil, err
	}
	out.Repository = repo
	logger = logger.With("repository", repo.String())

	// The file is read before reconciliation, so a missing file fails the
	// run even when an existing release would be reused unchanged.
	if input.Description == "" && input.DescriptionFile != "" {
		text, err := fileutil.ReadDescription(input.DescriptionFile)
		if err != nil {
			return nil, err
		}
		if spec, err = release.NewSpec(input.specInput(text)); err != nil {
			return nil, err
		}
	}

	client, err := s.newClient(ctx)
	if err != nil {
		return nil, err
	}

	logger.Debug("reconciling release", "name", spec.Name(), "prerelease", spec.PreRelease(), "draft", spec.Draft())
	rec, err := release.NewReconciler(client, input.Policy).Reconcile(ctx, repo, spec)
	if err != nil {
		logger.Error("release reconciliation failed", "error", err)
		out.Duration = s.now().Sub(start)
		return out, err
	}
	out.Release = rec.Release
	out.Action = rec.Action
	switch rec.Action {
	case release.ActionReplaced:
		logger.Info("replaced existing release", "name", rec.Release.Name, "previous_id", rec.Previous.ID, "id", rec.Release.ID)
	case release.ActionReused:
		logger.Info("reusing existing release", "name", rec.Release.Name, "id", rec.Release.ID)
	default:
		logger.Info("created release", "name", rec.Release.Name, "id", rec.Release.ID, "url", rec.Release.URL)
	}

	files, err := s.assets.Resolve(ctx)
	if err != nil {
		out.Duration = s.now().Sub(start)
		return out, err
	}
	logger.Debug("resolved asset files", "count", len(files))

	synchronizer := release.NewSynchronizer(client, input.mimeTypes(), input.Policy.OverwriteExistingAssets)
	result, err := synchronizer.Sync(ctx, repo, rec.Release, files)
	out.Assets = result
	if err != nil {
		logger.Error("asset synchronization failed", "error", err, "uploaded", len(result.Uploaded))
		out.Duration = s.now().Sub(start)
		return out, err
	}

	for _, o := range result.Outcomes {
		switch o.Action {
		case release.AssetSkipped:
			logger.Warn(fmt.Sprintf("asset %s already exists, skipping upload", o.File.Name), "asset", o.File.Name)
		case release.AssetReplaced:
			logger.Info("replaced asset", "asset", o.File.Name, "content_type", o.ContentType)
		default:
			logger.Info("uploaded asset", "asset", o.File.Name, "content_type", o.ContentType)
		}
	}

	out.Duration = s.now().Sub(start)
	logger.Info("release published", "release", out.Release.Name, "action", out.Action,
		"uploaded", len(result.Uploaded), "skipped", len(result.Skipped()), "duration", out.Duration)
	return out, nil
}

func (s *Service) resolveRepository(ctx context.Context, configured string) (release.RepositoryRef, error) {
	const op = "publish.resolveRepository"

	conn := configured
	if conn == "" {
		if s.locator == nil {
			return release.RepositoryRef{}, rperrors.Config(op, "no repository configured and no working tree to detect it from")
		}
		url, err := s.locator.OriginURL(ctx)
		if err != nil {
			return release.RepositoryRef{}, err
		}
		s.logger.Debug("detected repository from working tree", "url", rperrors.RedactSensitive(url))
		conn = url
	}
	return release.ResolveRepository(conn)
}

func (i *Input) specInput(descriptionFromFile string) release.SpecInput {
	return release.SpecInput{
		Tag:                 i.Tag,
		Name:                i.Name,
		Commitish:           i.Commitish,
		Draft:               i.Draft,
		Description:         i.Description,
		DescriptionFromFile: descriptionFromFile,
		PreRelease:          i.PreRelease,
		PreReleaseStrategy:  i.PreReleaseStrategy,
	}
}

func (i *Input) mimeTypes() release.MimeTypeMap {
	if i.MimeTypes.Len() == 0 {
		return release.DefaultMimeTypes()
	}
	return i.MimeTypes
}
