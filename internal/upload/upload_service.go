package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions is the image extension whitelist. Extension is the only
// check performed; there is no content sniffing or size limit.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// UploadService stores optional book images on disk
type UploadService struct {
	dir string
}

// NewUploadService creates a new UploadService, ensuring the target
// directory exists.
func NewUploadService(dir string) (*UploadService, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadService{dir: dir}, nil
}

// Allowed reports whether filename carries a whitelisted image extension,
// case-insensitively.
func Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Store writes the uploaded file under a sanitized, uuid-prefixed name and
// returns the stored path. A non-whitelisted extension returns ok=false and
// no file is written; the caller creates the book without an image.
func (s *UploadService) Store(file io.Reader, filename string) (string, bool, error) {
	if !Allowed(filename) {
		return "", false, nil
	}

	name := uuid.New().String() + "_" + sanitizeFilename(filename)
	path := filepath.Join(s.dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", false, fmt.Errorf("failed to write upload file: %w", err)
	}

	return path, true, nil
}

// sanitizeFilename strips path components and characters that could escape
// the upload directory.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, "..", "")
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
