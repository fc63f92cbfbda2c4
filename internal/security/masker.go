// Package security masks credentials in ghrelease output.
package security

import (
	"io"
	"os"
	"strings"
	"sync"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// minSecretLen keeps short values like "x" from redacting unrelated text.
const minSecretLen = 8

const redacted = "[REDACTED]"

// ciEnvVars are set by the CI systems ghrelease commonly runs under.
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"BUILDKITE",
	"TEAMCITY_VERSION",
}

// Masker redacts secrets from text. Registered secrets are always replaced;
// token-shaped patterns are only replaced while the masker is enabled.
type Masker struct {
	mu      sync.RWMutex
	enabled bool
	secrets []string
}

// NewMasker creates a disabled Masker with no registered secrets.
func NewMasker() *Masker {
	return &Masker{}
}

// Enable turns on pattern redaction.
func (m *Masker) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

// Disable turns off pattern redaction and forgets registered secrets.
func (m *Masker) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.secrets = nil
}

// IsEnabled reports whether pattern redaction is on.
func (m *Masker) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// AddSecret registers a literal value to redact, such as a resolved token.
func (m *Masker) AddSecret(secret string) {
	secret = strings.TrimSpace(secret)
	if len(secret) < minSecretLen {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.secrets {
		if s == secret {
			return
		}
	}
	m.secrets = append(m.secrets, secret)
}

// Mask returns s with secrets replaced by "[REDACTED]".
func (m *Masker) Mask(s string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, secret := range m.secrets {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	if m.enabled {
		s = rperrors.RedactSensitive(s)
	}
	return s
}

var global = NewMasker()

// Enable turns on pattern redaction for the process-wide masker.
func Enable() { global.Enable() }

// Disable resets the process-wide masker.
func Disable() { global.Disable() }

// IsEnabled reports whether the process-wide masker redacts patterns.
func IsEnabled() bool { return global.IsEnabled() }

// AddSecret registers a literal secret with the process-wide masker.
func AddSecret(secret string) { global.AddSecret(secret) }

// Mask redacts s with the process-wide masker.
func Mask(s string) string { return global.Mask(s) }

// EnableInCI enables pattern redaction when running under a CI system,
// where logs are usually retained and shared.
func EnableInCI() bool {
	for _, env := range ciEnvVars {
		if os.Getenv(env) != "" {
			Enable()
			return true
		}
	}
	return false
}

// MaskedWriter redacts everything written through it.
type MaskedWriter struct {
	w io.Writer
	m *Masker
}

// NewMaskedWriter wraps w with the process-wide masker.
func NewMaskedWriter(w io.Writer) *MaskedWriter {
	return &MaskedWriter{w: w, m: global}
}

// Write masks p before passing it on. It reports len(p) on success so the
// caller's accounting is unaffected by redaction.
func (mw *MaskedWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(mw.w, mw.m.Mask(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
