// Package storage keeps user-uploaded overlay images on disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/listing-customizer/internal/images"
)

// DefaultPublicPrefix is the URL path uploaded files are served under.
const DefaultPublicPrefix = "/uploads"

var (
	// ErrUnsupportedType is returned for uploads that are not an allowed image type.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrInvalidRef is returned when a reference does not belong to this store.
	ErrInvalidRef = errors.New("invalid file reference")
)

// FileStore stores uploaded files and returns an opaque reference to them.
type FileStore interface {
	StoreFile(ctx context.Context, userID, name string, data []byte) (string, error)
	DeleteFile(ctx context.Context, ref string) error
}

// Local stores files under a base directory, one subdirectory per user.
// References are URL paths under the public prefix, e.g. "/uploads/u1/<uuid>.jpg".
type Local struct {
	basePath string
	prefix   string
	mu       sync.Mutex
}

var _ FileStore = (*Local)(nil)

// NewLocal creates a Local store rooted at basePath.
func NewLocal(basePath, publicPrefix string) (*Local, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if publicPrefix == "" {
		publicPrefix = DefaultPublicPrefix
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Local{basePath: basePath, prefix: "/" + strings.Trim(publicPrefix, "/")}, nil
}

// BasePath returns the directory files are written to.
func (l *Local) BasePath() string {
	return l.basePath
}

// PublicPrefix returns the URL path prefix of every reference.
func (l *Local) PublicPrefix() string {
	return l.prefix
}

// StoreFile writes data under a fresh uuid name, keeping the upload's extension.
func (l *Local) StoreFile(_ context.Context, userID, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("file data cannot be empty")
	}
	dir, err := userDir(userID)
	if err != nil {
		return "", err
	}
	if !images.HasAllowedExtension(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	fileName := uuid.NewString() + strings.ToLower(filepath.Ext(name))

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(l.basePath, dir), 0755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.basePath, dir, fileName), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path.Join(l.prefix, dir, fileName), nil
}

// DeleteFile removes the file behind ref. A missing file is not an error.
func (l *Local) DeleteFile(_ context.Context, ref string) error {
	full, err := l.resolve(ref)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve maps a reference back to a path inside basePath.
func (l *Local) resolve(ref string) (string, error) {
	rel, ok := strings.CutPrefix(path.Clean(ref), l.prefix+"/")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || parts[0] == ".." || parts[1] == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	return filepath.Join(l.basePath, parts[0], parts[1]), nil
}

func userDir(userID string) (string, error) {
	if userID == "" || userID == "." || userID == ".." || strings.ContainsAny(userID, `/\`) {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return userID, nil
}
