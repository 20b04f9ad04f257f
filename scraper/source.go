package scraper

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Document is the raw text obtained from one source location.
type Document struct {
	Location string
	Text     string
}

// Renderer turns a remote page into plain text.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// IsRemote reports whether location should be fetched over the network.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// readFile returns the UTF-8 text of a local source file.
func readFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("source: read %q: %w", path, err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
