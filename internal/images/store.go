// Package images stores item pictures on the local filesystem under random
// names.
package images

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadSize bounds a whole upload request. Handlers enforce it before
// calling Save.
const MaxUploadSize = 5 << 20

// ErrInvalidImage is returned for missing names and disallowed extensions.
var ErrInvalidImage = errors.New("invalid image file")

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// DeleteResult describes what Delete did.
type DeleteResult int

const (
	// Skipped means there was no name to delete.
	Skipped DeleteResult = iota
	// Deleted means the file existed and was removed.
	Deleted
	// Missing means the file was already gone.
	Missing
	// Failed means removal hit an I/O error; the error is returned too.
	Failed
)

func (r DeleteResult) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case Deleted:
		return "deleted"
	case Missing:
		return "missing"
	default:
		return "failed"
	}
}

// Store keeps image files in a single directory.
type Store struct {
	root string
}

// NewStore creates the storage directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage directory.
func (s *Store) Root() string {
	return s.root
}

// Validate reports whether filename has an allowed image extension.
func Validate(filename string) bool {
	ext, ok := extension(filename)
	return ok && allowedExtensions[ext]
}

func extension(filename string) (string, bool) {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return "", false
	}
	return strings.ToLower(filename[i+1:]), true
}

// Save writes src under a fresh random name that keeps the original
// (lowercased) extension, and returns that name.
func (s *Store) Save(filename string, src io.Reader) (string, error) {
	if filename == "" || !Validate(filename) {
		return "", ErrInvalidImage
	}
	ext, _ := extension(filename)
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	path := filepath.Join(s.root, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return name, nil
}

// Delete removes a stored image. An empty name or an already missing file is
// not an error.
func (s *Store) Delete(name string) (DeleteResult, error) {
	if name == "" {
		return Skipped, nil
	}
	path, err := s.Path(name)
	if err != nil {
		return Failed, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Missing, nil
		}
		return Failed, fmt.Errorf("failed to delete image %s: %w", name, err)
	}
	return Deleted, nil
}

// Path resolves a stored name to its file path. Names that could escape the
// storage directory are rejected.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || !Validate(name) {
		return "", ErrInvalidImage
	}
	return filepath.Join(s.root, name), nil
}
