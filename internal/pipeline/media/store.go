package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kitmed/catalogsync/internal/catalog/domain"
)

const (
	imageSubdir = "products"
	pdfSubdir   = "pdfs"
)

// DirStore keeps downloaded assets on the local filesystem under a root
// directory, images and PDFs in separate subdirectories. Paths persisted on
// MediaAsset rows are relative to the root so the upload tree can be moved.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	for _, sub := range []string{imageSubdir, pdfSubdir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create media dir: %w", err)
		}
	}
	return &DirStore{root: root}, nil
}

func subdirFor(mediaType string) string {
	if mediaType == domain.MediaTypePDF {
		return pdfSubdir
	}
	return imageSubdir
}

// RelPath is the path persisted on the asset row.
func RelPath(mediaType, filename string) string {
	return subdirFor(mediaType) + "/" + filename
}

// AbsPath resolves a persisted relative path against the store root.
func (s *DirStore) AbsPath(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// ListFilenames returns the filenames already present for a media type. The
// reconciler loads this once at run start so repeated imports skip downloads
// for files that survived earlier runs.
func (s *DirStore) ListFilenames(mediaType string) (map[string]bool, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, subdirFor(mediaType)))
	if err != nil {
		return nil, fmt.Errorf("list media dir: %w", err)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names[e.Name()] = true
		}
	}
	return names, nil
}

// Write streams body to the named file, enforcing maxBytes and hashing the
// content as it goes. On any failure the partial file is removed.
func (s *DirStore) Write(mediaType, filename string, body io.Reader, maxBytes int64) (hash string, size int64, err error) {
	abs := s.AbsPath(RelPath(mediaType, filename))

	f, err := os.Create(abs)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	h := sha256.New()
	size, err = io.Copy(io.MultiWriter(f, h), io.LimitReader(body, maxBytes+1))
	closeErr := f.Close()

	switch {
	case err != nil:
		os.Remove(abs)
		return "", 0, fmt.Errorf("write file: %w", err)
	case closeErr != nil:
		os.Remove(abs)
		return "", 0, fmt.Errorf("close file: %w", closeErr)
	case size > maxBytes:
		os.Remove(abs)
		return "", 0, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// HashFile re-hashes an existing file, used when a run reuses a file it did
// not download itself.
func (s *DirStore) HashFile(rel string) (string, error) {
	f, err := os.Open(s.AbsPath(rel))
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
