// Package storage persists uploaded pod images under a configured
// directory. Files are stored under generated keys, never the client
// filename, so uploads cannot collide or traverse out of the directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyFilename   = errors.New("empty filename")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var extensionByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type StoredFile struct {
	// Key is the generated file name inside the uploads directory.
	Key string
	// Path is the key joined with the uploads directory, suitable for
	// reading the file back and for rendering as a relative URL.
	Path string
	Size int64
}

type UploadStore struct {
	dir     string
	maxSize int64
}

func NewUploadStore(dir string, maxSize int64) (*UploadStore, error) {
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir failed: %w", err)
	}
	return &UploadStore{dir: dir, maxSize: maxSize}, nil
}

// Save sniffs the content type, enforces the size bound, and writes the
// data under a UUID key with the extension derived from the sniffed type.
// The client filename is only checked for emptiness; it never reaches
// the filesystem.
func (s *UploadStore) Save(filename string, data []byte) (*StoredFile, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, ErrEmptyFilename
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensionByContentType[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := uuid.NewString() + ext
	path := filepath.Join(s.dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload failed: %w", err)
	}

	return &StoredFile{
		Key:  key,
		Path: path,
		Size: int64(len(data)),
	}, nil
}

// Open returns a reader for a previously stored file.
func (s *UploadStore) Open(key string) (io.ReadCloser, error) {
	if key != filepath.Base(key) {
		return nil, fmt.Errorf("invalid storage key %q", key)
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		return nil, fmt.Errorf("open stored file failed: %w", err)
	}
	return f, nil
}

func (s *UploadStore) Dir() string {
	return s.dir
}
