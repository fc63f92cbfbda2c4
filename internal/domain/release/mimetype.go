package release

import (
	"maps"
	"slices"
	"strings"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// MimeTypeMap maps a file extension (no leading dot) to a content type.
// The zero value is an empty table. Values are never mutated after
// construction, so a MimeTypeMap may be shared freely.
type MimeTypeMap struct {
	types map[string]string
}

// tar.gz archives resolve through "gz"; the leading "tar" is never consulted.
var defaultMimeTypes = NewMimeTypeMap(map[string]string{
	"zip": "application/zip",
	"tgz": "application/gzip",
	"gz":  "application/gzip",
	"jar": "application/java-archive",
})

// DefaultMimeTypes returns the built-in table covering zip, tgz, gz and jar.
func DefaultMimeTypes() MimeTypeMap {
	return defaultMimeTypes
}

// NewMimeTypeMap copies m into a new table.
func NewMimeTypeMap(m map[string]string) MimeTypeMap {
	return MimeTypeMap{types: maps.Clone(m)}
}

// SelectMimeTypes returns the caller's table when it has entries and the
// default table otherwise. A non-empty table replaces the default entirely.
// An empty table counts as not supplied: configuration loading cannot tell
// an empty mapping from an absent one, so there is no way to request an
// empty table that rejects every file.
func SelectMimeTypes(custom map[string]string) MimeTypeMap {
	if len(custom) == 0 {
		return DefaultMimeTypes()
	}
	return NewMimeTypeMap(custom)
}

// Lookup returns the content type mapped to ext.
func (m MimeTypeMap) Lookup(ext string) (string, bool) {
	ct, ok := m.types[ext]
	return ct, ok
}

// Len returns the number of mapped extensions.
func (m MimeTypeMap) Len() int {
	return len(m.types)
}

// Extensions returns the mapped extensions in sorted order.
func (m MimeTypeMap) Extensions() []string {
	return slices.Sorted(maps.Keys(m.types))
}

// Resolve returns the content type for fileName, keyed by the text after
// its last '.'.
func (m MimeTypeMap) Resolve(fileName string) (string, error) {
	const op = "release.ResolveContentType"

	if fileName == "" {
		return "", rperrors.Validation(op, "asset file name was empty")
	}

	dot := strings.LastIndexByte(fileName, '.')
	if dot < 0 {
		return "", rperrors.Validationf(op, "file %s has no extension so it cannot be mapped to a MIME type", fileName)
	}

	ext := fileName[dot+1:]
	if ext == "" {
		return "", rperrors.Validationf(op, "unable to determine content type for asset file %s due to an empty file extension", fileName)
	}

	ct, ok := m.types[ext]
	if !ok {
		return "", rperrors.NotMapped(op, "missing MIME type mapping for file extension "+ext).
			WithDetail("extension", ext)
	}
	if ct == "" {
		return "", rperrors.NotMapped(op, "MIME type map mapped extension "+ext+" to an empty type").
			WithDetail("extension", ext)
	}
	return ct, nil
}
