package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrObjectNotFound is returned when a key has no stored object.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for cover names that cannot form a safe key.
	ErrInvalidKey = errors.New("invalid object key")
)

const coverPrefix = "covers"

// Object is an opened stored object. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
	Close() error
}

// Storage keeps book cover images in an ObjectStorage backend.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Close releases the backend client.
func (s *Storage) Close() error {
	return s.backend.Close()
}

// CoverKey returns the object key for a book's cover file.
func CoverKey(bookID uuid.UUID, name string) (string, error) {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" || clean == "." || clean == ".." || clean == "/" || strings.ContainsAny(clean, `\`) {
		return "", ErrInvalidKey
	}
	return path.Join(coverPrefix, bookID.String(), clean), nil
}

// CoverURL is the public path a stored cover is served from.
func CoverURL(key string) string {
	return "/" + key
}

// KeyFromCoverURL reverses CoverURL. ok is false for covers that were not
// uploaded through this server.
func KeyFromCoverURL(bookID uuid.UUID, url string) (string, bool) {
	prefix := "/" + path.Join(coverPrefix, bookID.String()) + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, "/"), true
}

// PutCover uploads a cover image and returns its key.
func (s *Storage) PutCover(ctx context.Context, bookID uuid.UUID, name string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := CoverKey(bookID, name)
	if err != nil {
		return "", err
	}
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// OpenCover opens a stored cover image.
func (s *Storage) OpenCover(ctx context.Context, bookID uuid.UUID, name string) (Object, error) {
	key, err := CoverKey(bookID, name)
	if err != nil {
		return Object{}, err
	}
	return s.backend.Get(ctx, key)
}

// Delete removes an object from the configured bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
