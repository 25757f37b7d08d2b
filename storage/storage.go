// Package storage keeps uploaded project and profile images in an object
// store. The MinIO backend is used when an endpoint is configured; otherwise
// images are held in memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload, in bytes.
const MaxImageSize = 5 << 20

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var (
	ErrNotFound         = errors.New("object not found")
	ErrUnsupportedImage = errors.New("only JPG, PNG, GIF and WEBP images are allowed")
	ErrImageTooLarge    = fmt.Errorf("image must be smaller than %d MB", MaxImageSize>>20)
	ErrEmptyImage       = errors.New("image is empty")
)

// Upload is a file received from a form.
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// Object is a stored image opened for reading. Callers close Reader.
type Object struct {
	Reader       io.ReadCloser
	ContentType  string
	Size         int64
	LastModified time.Time
}

type Store interface {
	Put(ctx context.Context, key string, u *Upload) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// ValidateImage checks the extension and size of an upload.
func ValidateImage(u *Upload) error {
	if u == nil || u.Size == 0 {
		return ErrEmptyImage
	}
	if _, ok := allowedImageTypes[strings.ToLower(path.Ext(u.Filename))]; !ok {
		return ErrUnsupportedImage
	}
	if u.Size > MaxImageSize {
		return ErrImageTooLarge
	}
	return nil
}

// ContentType returns the MIME type implied by the file extension.
func ContentType(filename string) string {
	if ct, ok := allowedImageTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// NewObjectKey builds a collision-free key under folder keeping the
// upload's extension, e.g. "projects/3f2c...e1.png".
func NewObjectKey(folder, filename string) string {
	return path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(filename)))
}

// Save validates u, then stores it under a fresh key in folder and returns
// the key.
func Save(ctx context.Context, s Store, folder string, u *Upload) (string, error) {
	if err := ValidateImage(u); err != nil {
		return "", err
	}
	key := NewObjectKey(folder, u.Filename)
	if err := s.Put(ctx, key, u); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return key, nil
}
