// Package photo stores visitor photos on disk and hands back a reference.
package photo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxSize is the largest decoded photo accepted.
const MaxSize = 5 << 20

var (
	// ErrStorage is returned when a photo cannot be written or read.
	ErrStorage = errors.New("photo storage failed")

	// ErrInvalidImage is returned for payloads that are not a supported image.
	ErrInvalidImage = errors.New("invalid photo")

	// ErrNotFound is returned when a reference does not name a stored photo.
	ErrNotFound = errors.New("photo not found")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store writes photos as files under a single directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating photo directory: %w: %w", ErrStorage, err)
	}
	return &Store{dir: dir}, nil
}

// Save decodes a base64 image, either raw or as a data URL, writes it under
// a fresh name and returns that name.
func (s *Store) Save(payload string) (string, error) {
	data, err := decode(payload)
	if err != nil {
		return "", err
	}

	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type", ErrInvalidImage)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o640); err != nil {
		return "", fmt.Errorf("writing photo: %w: %w", ErrStorage, err)
	}
	return name, nil
}

// Path resolves a reference returned by Save to a file path.
func (s *Store) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", ErrNotFound
	}
	p := filepath.Join(s.dir, ref)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("checking photo: %w: %w", ErrStorage, err)
	}
	return p, nil
}

// Remove deletes a stored photo. Removing a missing photo is not an error.
func (s *Store) Remove(ref string) error {
	p, err := s.Path(ref)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing photo: %w: %w", ErrStorage, err)
	}
	return nil
}

func decode(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		_, after, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		payload = after
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxSize+3 {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxSize)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxSize)
	}
	return data, nil
}
