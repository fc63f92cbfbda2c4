package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/relicta-tech/ghrelease/internal/application/publish"
	"github.com/relicta-tech/ghrelease/internal/config"
	"github.com/relicta-tech/ghrelease/internal/domain/release"
	"github.com/relicta-tech/ghrelease/internal/infrastructure/credential"
	"github.com/relicta-tech/ghrelease/internal/infrastructure/dryrun"
	"github.com/relicta-tech/ghrelease/internal/infrastructure/fileset"
	"github.com/relicta-tech/ghrelease/internal/infrastructure/git"
	"github.com/relicta-tech/ghrelease/internal/infrastructure/github"
	"github.com/relicta-tech/ghrelease/internal/observability"
	"github.com/relicta-tech/ghrelease/internal/security"
)

// newClientFactory builds the GitHub client chain: credentials, the API
// client with retries, metrics, and the dry-run decorator when requested.
func newClientFactory(c *config.Config, metrics *observability.Metrics, lg *slog.Logger, dry bool) publish.ClientFactory {
	return func(ctx context.Context) (release.Client, error) {
		token, source, err := credential.NewProvider(credential.Config{
			Token:           c.GitHub.Token,
			CredentialsFile: c.GitHub.CredentialsFile,
			IdentityFile:    c.GitHub.IdentityFile,
		}).Token(ctx)
		if err != nil {
			return nil, err
		}
		security.AddSecret(token)
		lg.Debug("resolved GitHub token", "source", source)

		gc, err := github.New(ctx, token, github.Options{
			BaseURL:    c.GitHub.BaseURL,
			UploadURL:  c.GitHub.UploadURL,
			Resilience: resilienceConfig(c.GitHub),
		})
		if err != nil {
			return nil, err
		}

		var client release.Client = gc
		if metrics != nil {
			client = observability.Instrument(client, metrics)
		}
		if dry {
			client = dryrun.New(client, lg)
		}
		return client, nil
	}
}

func resilienceConfig(c config.GitHubConfig) github.ResilienceConfig {
	return github.ResilienceConfig{
		RetryAttempts:    c.Retry.Attempts,
		RetryInitialWait: c.Retry.InitialWait,
		RetryMaxWait:     c.Retry.MaxWait,
		RateLimitRPM:     c.RateLimitRPM,
	}
}

// assetSets converts the configured asset sets.
func assetSets(c *config.Config) []fileset.Set {
	sets := make([]fileset.Set, 0, len(c.Assets))
	for _, a := range c.Assets {
		sets = append(sets, fileset.Set{
			Directory: a.Directory,
			Includes:  a.Includes,
			Excludes:  a.Excludes,
		})
	}
	return sets
}

// mimeTypes returns the configured extension table, or the defaults.
func mimeTypes(c *config.Config) (release.MimeTypeMap, error) {
	table, err := c.MimeTypeTable()
	if err != nil {
		return release.MimeTypeMap{}, err
	}
	return release.SelectMimeTypes(table), nil
}

func releasePolicy(c config.PolicyConfig) release.Policy {
	return release.Policy{
		FailIfReleaseExists:     c.FailIfReleaseExists,
		DeleteExistingRelease:   c.DeleteExistingRelease,
		OverwriteExistingAssets: c.OverwriteExistingAssets,
		ExcludePreReleases:      c.ExcludePreReleases,
	}
}

// publishInput maps the configuration onto the use case input.
func publishInput(c *config.Config) (publish.Input, error) {
	mimes, err := mimeTypes(c)
	if err != nil {
		return publish.Input{}, err
	}
	return publish.Input{
		Repository:         c.Repository,
		Tag:                c.Release.Tag,
		Name:               c.Release.Name,
		Description:        c.Release.Description,
		DescriptionFile:    c.Release.DescriptionFile,
		Commitish:          c.Release.Commitish,
		Draft:              c.Release.Draft,
		PreRelease:         c.Release.PreRelease,
		PreReleaseStrategy: release.PreReleaseStrategy(c.Release.PreReleaseStrategy),
		Policy:             releasePolicy(c.Policy),
		MimeTypes:          mimes,
	}, nil
}

// newLocator returns a git locator rooted at the working directory.
func newLocator() *git.Locator {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return git.NewLocator(wd, git.DefaultRemote)
}
