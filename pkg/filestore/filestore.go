// Package filestore provides disk-backed storage for attachment images.
// Stored names are collision-resistant and not derivable from patient ids,
// so concurrent uploads never clash and URLs cannot be enumerated.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrExtensionMismatch  = errors.New("file extension does not match content type")
	ErrEmptyFile          = errors.New("file is empty")
)

// MaxImageSize is the maximum allowed image size in bytes (5 MiB).
const MaxImageSize = 5 * 1024 * 1024

// allowedImageTypes maps accepted MIME types to their extensions.
var allowedImageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// ValidateImage checks size, sniffed content type, and that the declared
// filename extension agrees with the sniffed type. It returns the canonical
// extension to store the file under.
func ValidateImage(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > MaxImageSize {
		return "", ErrFileTooLarge
	}

	contentType := http.DetectContentType(data)
	exts, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	declared := strings.ToLower(filepath.Ext(filename))
	for _, ext := range exts {
		if declared == ext {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not %s", ErrExtensionMismatch, declared, contentType)
}

// Store is the file storage boundary. Write is the only non-idempotent
// operation; Delete of an absent file is not an error.
type Store interface {
	Write(ctx context.Context, ext string, data []byte) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// DiskStore stores files under a root directory and hands out paths
// relative to it.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Write persists data under a freshly generated name and returns the
// relative path used as the persisted image URL.
func (s *DiskStore) Write(_ context.Context, ext string, data []byte) (string, error) {
	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.root, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return name, nil
}

func (s *DiskStore) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.Base(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *DiskStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, filepath.Base(path)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Delete removes a stored file. Removing an already-absent file succeeds.
func (s *DiskStore) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Base(path)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
