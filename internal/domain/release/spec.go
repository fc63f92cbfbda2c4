package release

import (
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// SpecInput carries the caller-supplied values for a release.
type SpecInput struct {
	Tag       string
	Name      string
	Commitish string
	Draft     bool

	// Description is the release body. It takes precedence over
	// DescriptionFromFile when non-empty.
	Description string
	// DescriptionFromFile is the already-read content of a description file.
	DescriptionFromFile string

	// PreRelease pins the pre-release flag. When nil the flag is derived
	// from Tag using PreReleaseStrategy.
	PreRelease         *bool
	PreReleaseStrategy PreReleaseStrategy
}

// Spec is the desired state of a release. It is immutable once built.
type Spec struct {
	tag         string
	name        string
	description string
	commitish   string
	draft       bool
	preRelease  bool
}

// NewSpec validates in and builds a Spec.
func NewSpec(in SpecInput) (Spec, error) {
	const op = "release.NewSpec"

	if in.Tag == "" {
		return Spec{}, rperrors.Validation(op, "tag must not be empty")
	}
	if in.Name == "" {
		return Spec{}, rperrors.Validation(op, "release name must not be empty")
	}

	preRelease := ClassifyPreRelease(in.Tag, in.PreReleaseStrategy)
	if in.PreRelease != nil {
		preRelease = *in.PreRelease
	}

	description := in.Description
	if description == "" {
		description = in.DescriptionFromFile
	}

	return Spec{
		tag:         in.Tag,
		name:        in.Name,
		description: description,
		commitish:   in.Commitish,
		draft:       in.Draft,
		preRelease:  preRelease,
	}, nil
}

// Tag returns the git tag the release is based on.
func (s Spec) Tag() string { return s.tag }

// Name returns the release name used to match remote releases.
func (s Spec) Name() string { return s.name }

// Description returns the release body.
func (s Spec) Description() string { return s.description }

// Commitish returns the optional base reference for a new tag.
func (s Spec) Commitish() string { return s.commitish }

// Draft reports whether the release is created as a draft.
func (s Spec) Draft() bool { return s.draft }

// PreRelease reports whether the release is marked as a pre-release.
func (s Spec) PreRelease() bool { return s.preRelease }

// CreateRequest is the payload of a create-release call.
// Empty Description and Commitish are omitted from the request.
type CreateRequest struct {
	Tag         string
	Name        string
	Description string
	Commitish   string
	Draft       bool
	PreRelease  bool
}

// CreateRequest builds the create-release payload for s.
func (s Spec) CreateRequest() CreateRequest {
	return CreateRequest{
		Tag:         s.tag,
		Name:        s.name,
		Description: s.description,
		Commitish:   s.commitish,
		Draft:       s.draft,
		PreRelease:  s.preRelease,
	}
}
