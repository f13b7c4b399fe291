// Package store implements the on-disk persistence pattern every document
// type in jamvcs follows: read a missing file as its zero value (writing
// that default back out so the next read finds it), read an existing file
// by deserializing YAML, and write by serializing and overwriting.
//
// This generalizes the original LocalArchive trait (read/read_from/
// update/update_to) into a single generic pair so the catalog, the
// workspace record, the local file map and the local folder map share one
// implementation instead of four hand-written copies.
package store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Root is the workspace root directory every relative document path is
// resolved against. It is passed explicitly to every call in this
// package rather than held in a package-level global, per the "module
// global state should become explicit context" design note.
type Root struct {
	Dir string
}

// NewRoot returns a Root rooted at dir.
func NewRoot(dir string) Root {
	return Root{Dir: dir}
}

// Path resolves rel against the root.
func (r Root) Path(rel string) string {
	return filepath.Join(r.Dir, rel)
}

// Document is implemented by every persisted value. RelPath returns the
// path (relative to a Root) the value is stored under.
type Document interface {
	RelPath() string
}

// Load reads doc's backing file under root into doc. If the file is
// missing, doc is left at its caller-supplied zero/default value and that
// value is written out so subsequent reads find it. Any other read or
// parse error causes Load to fall back silently to the default value
// the caller already populated in doc -- callers always get a usable
// document back, even on a corrupt or unreadable file.
func Load[T Document](root Root, doc T) T {
	full := root.Path(doc.RelPath())

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			_ = Save(root, doc)
		}
		return doc
	}

	// T is always instantiated with a pointer type (e.g. *catalog.Database)
	// so doc itself is the pointer yaml.Unmarshal needs to populate.
	if err := yaml.Unmarshal(data, doc); err != nil {
		return doc
	}
	return doc
}

// Save serializes doc as YAML and overwrites its backing file under root,
// creating parent directories as needed.
func Save[T Document](root Root, doc T) error {
	full := root.Path(doc.RelPath())

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", full)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", full)
	}

	if err := os.WriteFile(full, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", full)
	}
	return nil
}

// SaveAt serializes doc as YAML to an explicit absolute path instead of
// doc's own RelPath -- used by the archive command, which persists the
// live catalog's document type under a numbered history path.
func SaveAt[T any](path string, doc T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", path)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
