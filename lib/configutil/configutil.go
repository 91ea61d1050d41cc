// Package configutil loads json5 configuration files with optional
// machine-local overrides. The library itself takes no config files;
// this exists for the live site tests, which read credentials from a
// geoscrape.json5 found somewhere up the directory tree.
package configutil

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Read decodes the json5 file at path. When a sibling with ".local"
// inserted before the extension exists (scraper.json5 next to
// scraper.local.json5), its values override the base file's, so
// credentials can stay out of version control. Returns fs.ErrNotExist
// when neither file exists.
func Read[T any](path string) (T, error) {
	var config T
	found := false

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json5.Unmarshal(raw, &config); err != nil {
			return config, err
		}
		found = true
	case !errors.Is(err, fs.ErrNotExist):
		return config, err
	}

	localPath := localVariant(path)
	raw, err = os.ReadFile(localPath)
	switch {
	case err == nil:
		var local T
		if err := json5.Unmarshal(raw, &local); err != nil {
			return config, err
		}
		if err := mergo.Merge(&config, local, mergo.WithOverride); err != nil {
			return config, err
		}
		slog.Debug("applied local config overrides", "path", localPath)
		found = true
	case !errors.Is(err, fs.ErrNotExist):
		return config, err
	}

	if !found {
		return config, fs.ErrNotExist
	}
	return config, nil
}

// localVariant inserts ".local" before the file extension, or appends
// it when there is none.
func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// FindUp looks for name in the working directory and every parent up
// to the filesystem root, reading the first match with Read.
func FindUp[T any](name string) (T, error) {
	var zero T

	dir, err := os.Getwd()
	if err != nil {
		return zero, err
	}
	for {
		config, err := Read[T](filepath.Join(dir, name))
		if !errors.Is(err, fs.ErrNotExist) {
			return config, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return zero, fs.ErrNotExist
		}
		dir = parent
	}
}
