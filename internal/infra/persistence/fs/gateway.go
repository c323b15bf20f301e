// Package fs persists gateway keys as files under a root directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"momentum/pkg/domain"
)

var _ domain.Gateway = (*Gateway)(nil)

const fileSuffix = ".json"

// Gateway maps each key to <root>/<key>.json. Writes go to a temp file in
// the same directory and are renamed into place.
type Gateway struct {
	root string
	mu   sync.Mutex
}

// New returns a gateway rooted at root, creating the directory if needed.
func New(root string) (*Gateway, error) {
	if root == "" {
		root = "./momentum-data"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Gateway{root: root}, nil
}

// Root returns the data directory.
func (g *Gateway) Root() string { return g.root }

// sanitizeKey rejects keys that could escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid key %q contains a path separator", key)
	}
	return key, nil
}

func (g *Gateway) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(g.root, k+fileSuffix), nil
}

// Get implements domain.Gateway.
func (g *Gateway) Get(_ context.Context, key string) (string, bool, error) {
	path, err := g.pathFor(key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), true, nil
}

// Set implements domain.Gateway.
func (g *Gateway) Set(_ context.Context, key, value string) error {
	path, err := g.pathFor(key)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	tmp, err := os.CreateTemp(g.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Remove implements domain.Gateway. Removing a missing key is not an error.
func (g *Gateway) Remove(_ context.Context, key string) error {
	path, err := g.pathFor(key)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
