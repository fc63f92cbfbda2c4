package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
	"github.com/relicta-tech/ghrelease/internal/fileutil"
)

// maxMimeTypeFileSize bounds a MIME table file.
const maxMimeTypeFileSize = 1 << 20

// LoadMimeTypeFile decodes a flat extension to content type mapping. The
// format follows the file extension: .yaml, .yml, .toml or .json.
func LoadMimeTypeFile(path string) (map[string]string, error) {
	const op = "config.LoadMimeTypeFile"

	data, err := fileutil.ReadFileLimited(path, maxMimeTypeFileSize)
	if err != nil {
		return nil, rperrors.IOWrap(err, op, "failed to read MIME type file "+path)
	}

	types := make(map[string]string)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &types)
	case ".toml":
		err = toml.Unmarshal(data, &types)
	case ".json":
		err = json.Unmarshal(data, &types)
	default:
		return nil, rperrors.Config(op, "unsupported MIME type file format "+ext)
	}
	if err != nil {
		return nil, rperrors.ConfigWrap(err, op, "failed to decode MIME type file "+path)
	}
	return types, nil
}

// MimeTypeTable returns the configured extension table: mime_types when
// set, otherwise the contents of mime_types_file. Nil means the defaults.
func (c *Config) MimeTypeTable() (map[string]string, error) {
	if len(c.MimeTypes) > 0 {
		return c.MimeTypes, nil
	}
	if c.MimeTypesFile == "" {
		return nil, nil
	}
	return LoadMimeTypeFile(c.MimeTypesFile)
}
