// Package qrcode renders memorial links as PNG QR codes.
package qrcode

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goqr "github.com/skip2/go-qrcode"

	"github.com/angelmondragon/memorial-backend/pkg/storage"
)

const defaultSize = 300

// Generator encodes URLs and writes the image to a store.
type Generator struct {
	store storage.Store
	size  int
}

func NewGenerator(store storage.Store, size int) *Generator {
	if size <= 0 {
		size = defaultSize
	}
	return &Generator{store: store, size: size}
}

// Encode returns the PNG bytes for content.
func (g *Generator) Encode(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("qr content is required")
	}
	png, err := goqr.Encode(content, goqr.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Generate renders content and stores it as <name>.png, returning the public path.
func (g *Generator) Generate(ctx context.Context, name, content string) (string, error) {
	if g == nil || g.store == nil {
		return "", fmt.Errorf("qr store not configured")
	}
	png, err := g.Encode(content)
	if err != nil {
		return "", err
	}
	return g.store.Put(ctx, name+".png", bytes.NewReader(png), int64(len(png)), "image/png")
}

// Remove deletes the image Generate stored under name.
func (g *Generator) Remove(ctx context.Context, name string) error {
	if g == nil || g.store == nil {
		return fmt.Errorf("qr store not configured")
	}
	return g.store.Delete(ctx, name+".png")
}
