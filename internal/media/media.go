// Package media validates uploaded images and stores them under the media root.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Validation failures reported for uploads.
var (
	ErrEmptyUpload     = errors.New("the submitted file is empty")
	ErrUploadTooLarge  = errors.New("the submitted file is too large")
	ErrNotAnImage      = errors.New("upload a valid image; the file you uploaded was either not an image or a corrupted image")
	ErrInvalidFilename = errors.New("the submitted file has no usable name")
)

var allowedExtensions = map[string]bool{
	".gif": true, ".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".bmp": true,
}

// Upload is a validated image waiting to be stored.
type Upload struct {
	Filename string
	Format   string
	Width    int
	Height   int
	Content  []byte
}

// ValidateImage checks that content decodes as a supported image no larger than maxBytes.
func ValidateImage(filename string, content []byte, maxBytes int64) (*Upload, error) {
	name := cleanFilename(filename)
	if name == "" {
		return nil, ErrInvalidFilename
	}
	if len(content) == 0 {
		return nil, ErrEmptyUpload
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, ErrUploadTooLarge
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, ErrNotAnImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, ErrNotAnImage
	}

	return &Upload{
		Filename: name,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Content:  content,
	}, nil
}

// cleanFilename drops any client-supplied directories.
func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// Storage persists uploads and returns their path relative to the media root.
type Storage interface {
	Save(ctx context.Context, dir string, upload *Upload) (string, error)
	Delete(name string) error
}

// FileStorage stores files on an afero filesystem rooted at the media root.
type FileStorage struct {
	fs afero.Fs
}

// NewFileStorage stores media below root on the OS filesystem.
func NewFileStorage(root string) *FileStorage {
	return &FileStorage{fs: afero.NewBasePathFs(afero.NewOsFs(), root)}
}

// NewStorageOnFs stores media on an arbitrary afero filesystem.
func NewStorageOnFs(fs afero.Fs) *FileStorage {
	return &FileStorage{fs: fs}
}

// Save writes the upload into dir, keeping the original name unless it is
// taken, in which case a short random suffix is added before the extension.
func (s *FileStorage) Save(ctx context.Context, dir string, upload *Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir = strings.Trim(dir, "/")
	if err := s.fs.MkdirAll(rooted(dir), 0o755); err != nil {
		return "", fmt.Errorf("create media dir %q: %w", dir, err)
	}

	name := path.Join(dir, upload.Filename)
	exists, err := afero.Exists(s.fs, rooted(name))
	if err != nil {
		return "", err
	}
	if exists {
		ext := path.Ext(upload.Filename)
		base := strings.TrimSuffix(upload.Filename, ext)
		name = path.Join(dir, base+"_"+uuid.NewString()[:7]+ext)
	}

	if err := afero.WriteFile(s.fs, rooted(name), upload.Content, 0o644); err != nil {
		return "", fmt.Errorf("write media file %q: %w", name, err)
	}
	return name, nil
}

// HTTPFileSystem exposes the stored files for serving under /media/.
func (s *FileStorage) HTTPFileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs).Dir("/")
}

// Delete removes a stored file; a missing file is not an error.
func (s *FileStorage) Delete(name string) error {
	err := s.fs.Remove(rooted(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// rooted anchors a stored name at the filesystem root so ".." cannot escape it.
func rooted(name string) string {
	return path.Clean("/" + name)
}
