// Package storage defines where uploaded media and generated QR images live.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes one stored file.
type Object struct {
	Key  string
	Name string
	Path string
	Size int64
}

// Store persists media under slash-separated keys such as "images/<uuid>.jpg".
type Store interface {
	// Put writes body under key and returns the public path clients use to fetch it.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// List returns the objects directly under prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	PublicPath(key string) string
}

// CleanKey normalizes key and rejects traversal outside the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// JoinURL joins a base URL or path prefix with a key using single slashes.
func JoinURL(base, key string) string {
	base = strings.TrimRight(base, "/")
	key = strings.TrimLeft(key, "/")
	if base == "" {
		return "/" + key
	}
	return base + "/" + key
}
