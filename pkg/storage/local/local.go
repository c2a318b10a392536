// Package local stores media on the server filesystem, served by the API's static routes.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/angelmondragon/memorial-backend/pkg/storage"
)

// Store writes files beneath root and exposes them under urlPrefix.
type Store struct {
	root      string
	urlPrefix string
}

var _ storage.Store = (*Store)(nil)

// New creates root if needed. urlPrefix is the path the router serves root at, e.g. "/uploads".
func New(root, urlPrefix string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	return &Store{root: root, urlPrefix: urlPrefix}, nil
}

// Root returns the directory backing the store.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %q: %w", cleaned, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write %q: %w", cleaned, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close %q: %w", cleaned, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("finalize %q: %w", cleaned, err)
	}
	return s.PublicPath(cleaned), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns regular files directly under prefix, sorted by name. A missing
// directory is an empty listing.
func (s *Store) List(_ context.Context, prefix string) ([]storage.Object, error) {
	dir := s.root
	cleanedPrefix := ""
	if prefix != "" {
		cleaned, err := storage.CleanKey(prefix)
		if err != nil {
			return nil, err
		}
		cleanedPrefix = cleaned
		dir = filepath.Join(s.root, filepath.FromSlash(cleaned))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []storage.Object{}, nil
		}
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	out := make([]storage.Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		key := entry.Name()
		if cleanedPrefix != "" {
			key = cleanedPrefix + "/" + entry.Name()
		}
		out = append(out, storage.Object{
			Key:  key,
			Name: entry.Name(),
			Path: s.PublicPath(key),
			Size: info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) PublicPath(key string) string {
	return storage.JoinURL(s.urlPrefix, key)
}
