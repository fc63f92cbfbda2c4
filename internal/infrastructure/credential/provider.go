// Package credential resolves the GitHub token used by the release client.
package credential

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
	"github.com/relicta-tech/ghrelease/internal/fileutil"
)

// maxCredentialFileSize bounds identity and credentials files.
const maxCredentialFileSize = 64 << 10

const binaryHeader = "age-encryption.org/"

// Source names where a token was found.
type Source string

const (
	SourceConfig      Source = "config"
	SourceGitHubToken Source = "GITHUB_TOKEN"
	SourceGHToken     Source = "GH_TOKEN"
	SourceFile        Source = "credentials_file"
)

// Config selects the token sources.
type Config struct {
	// Token is an explicitly configured token.
	Token string
	// CredentialsFile is an age-encrypted file holding the token. It may be
	// armored, binary, or base64 encoded binary.
	CredentialsFile string
	// IdentityFile holds the age identities that decrypt CredentialsFile.
	IdentityFile string
}

// Provider resolves a token from the configured sources in order:
// explicit token, GITHUB_TOKEN, GH_TOKEN, then the encrypted credentials file.
type Provider struct {
	cfg    Config
	getenv func(string) string
}

// NewProvider creates a Provider reading the process environment.
func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg, getenv: os.Getenv}
}

// Token returns the first non-empty token and where it came from.
func (p *Provider) Token(ctx context.Context) (string, Source, error) {
	const op = "credential.Token"

	if err := ctx.Err(); err != nil {
		return "", "", rperrors.Wrap(err, rperrors.KindCanceled, op, "token lookup canceled")
	}

	if t := strings.TrimSpace(p.cfg.Token); t != "" {
		return t, SourceConfig, nil
	}
	if t := strings.TrimSpace(p.getenv("GITHUB_TOKEN")); t != "" {
		return t, SourceGitHubToken, nil
	}
	if t := strings.TrimSpace(p.getenv("GH_TOKEN")); t != "" {
		return t, SourceGHToken, nil
	}
	if p.cfg.CredentialsFile != "" {
		t, err := decryptFile(p.cfg.CredentialsFile, p.cfg.IdentityFile)
		if err != nil {
			return "", "", err
		}
		return t, SourceFile, nil
	}
	return "", "", rperrors.Auth(op, "GitHub token is required (set GITHUB_TOKEN, GH_TOKEN, github.token or github.credentials_file)")
}

func decryptFile(credentialsFile, identityFile string) (string, error) {
	const op = "credential.decryptFile"

	if identityFile == "" {
		return "", rperrors.Auth(op, "github.identity_file is required to decrypt "+credentialsFile)
	}

	idData, err := fileutil.ReadFileLimited(identityFile, maxCredentialFileSize)
	if err != nil {
		return "", rperrors.AuthWrap(err, op, "failed to read identity file")
	}
	identities, err := age.ParseIdentities(bytes.NewReader(idData))
	if err != nil {
		return "", rperrors.AuthWrap(err, op, "failed to parse identity file")
	}

	ciphertext, err := fileutil.ReadFileLimited(credentialsFile, maxCredentialFileSize)
	if err != nil {
		return "", rperrors.AuthWrap(err, op, "failed to read credentials file")
	}
	src, err := ciphertextReader(ciphertext)
	if err != nil {
		return "", rperrors.AuthWrap(err, op, "credentials file is not age encrypted")
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return "", rperrors.AuthWrap(err, op, "failed to decrypt credentials file")
	}
	plaintext, err := io.ReadAll(io.LimitReader(r, maxCredentialFileSize))
	if err != nil {
		return "", rperrors.AuthWrap(err, op, "failed to read decrypted credentials")
	}

	token := strings.TrimSpace(string(plaintext))
	if token == "" {
		return "", rperrors.Auth(op, "credentials file decrypted to an empty token")
	}
	return token, nil
}

func ciphertextReader(data []byte) (io.Reader, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte(armor.Header)):
		return armor.NewReader(bytes.NewReader(trimmed)), nil
	case bytes.HasPrefix(data, []byte(binaryHeader)):
		return bytes.NewReader(data), nil
	default:
		raw, err := base64.StdEncoding.DecodeString(string(trimmed))
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(raw), nil
	}
}
