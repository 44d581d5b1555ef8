// Package file provides file-based blob persistence: one JSON file per key
// under a root directory.
package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/atelierhq/atelier/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file
// system. Keys map to <root>/<key>.json.
type Persistence struct {
	root string
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists or can be created.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(fp.root, 0750)
	if err != nil {
		return persistence.NewStoreError("HealthCheck", fp.root, err)
	}

	return nil
}

// Save writes the value to <root>/<key>.json, creating directories as needed.
func (fp *Persistence) Save(_ context.Context, key string, value []byte) error {
	filePath, err := fp.pathFor(key)
	if err != nil {
		return persistence.NewStoreError("Save", key, err)
	}

	err = os.MkdirAll(filepath.Dir(filePath), 0750)
	if err != nil {
		return persistence.NewStoreError("Save", key, err)
	}

	err = os.WriteFile(filePath, value, 0600)
	if err != nil {
		return persistence.NewStoreError("Save", key, err)
	}

	return nil
}

// Load reads the value stored under the key.
func (fp *Persistence) Load(_ context.Context, key string) ([]byte, error) {
	filePath, err := fp.pathFor(key)
	if err != nil {
		return nil, persistence.NewStoreError("Load", key, err)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("Load", key, persistence.ErrKeyNotFound)
		}

		return nil, persistence.NewStoreError("Load", key, err)
	}

	return body, nil
}

// Delete removes the key's file.
func (fp *Persistence) Delete(_ context.Context, key string) error {
	filePath, err := fp.pathFor(key)
	if err != nil {
		return persistence.NewStoreError("Delete", key, err)
	}

	err = os.Remove(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewStoreError("Delete", key, persistence.ErrKeyNotFound)
		}

		return persistence.NewStoreError("Delete", key, err)
	}

	return nil
}

// Keys lists every stored key with the given prefix.
func (fp *Persistence) Keys(_ context.Context, prefix string) ([]string, error) {
	root := os.DirFS(fp.root)

	keys := make([]string, 0)

	err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// A missing root means an empty store, not a failure.
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}

			return err
		}

		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}

		key := strings.TrimSuffix(p, ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}

		return nil
	})
	if err != nil {
		return nil, persistence.NewStoreError("Keys", prefix, err)
	}

	return keys, nil
}

// pathFor maps a key to its file path, rejecting keys that would escape the
// root.
func (fp *Persistence) pathFor(key string) (string, error) {
	if key == "" {
		return "", persistence.ErrInvalidKey
	}

	cleaned := path.Clean(key)
	if strings.HasPrefix(cleaned, "..") || path.IsAbs(cleaned) {
		return "", persistence.ErrInvalidKey
	}

	return filepath.Join(fp.root, filepath.FromSlash(cleaned)+".json"), nil
}
