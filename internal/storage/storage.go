// Package storage keeps uploaded photos on the local filesystem together with
// a JPEG thumbnail of each.
//
// Layout:
//
//	{ImageDir}/{name}               original bytes, served at /images/{name}
//	{ThumbnailDir}/{base}.jpg       thumbnail, served at /thumbnails/{base}.jpg
//
// Names are generated here, never taken from the client.
package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Decoders for image.Decode.
	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/sakif/photoshare/internal/apperror"
	"github.com/sakif/photoshare/internal/model"
)

// extensions maps image.Decode format names to file extensions.
var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
}

// MaxImagePixels bounds width*height of an accepted image. The header is
// checked before the pixels are decoded.
const MaxImagePixels = 40_000_000

// LocalStore writes images under two directories on disk.
type LocalStore struct {
	imageDir     string
	thumbnailDir string
	thumbSize    uint
}

// NewLocalStore creates both directories if needed.
func NewLocalStore(imageDir, thumbnailDir string, thumbSize uint) (*LocalStore, error) {
	for _, dir := range []string{imageDir, thumbnailDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
		}
	}
	return &LocalStore{imageDir: imageDir, thumbnailDir: thumbnailDir, thumbSize: thumbSize}, nil
}

func (s *LocalStore) ImageDir() string     { return s.imageDir }
func (s *LocalStore) ThumbnailDir() string { return s.thumbnailDir }

// Save stores the image read from r and its thumbnail, returning the new
// file name. Input that is not a JPEG, PNG or GIF is rejected with
// apperror.ErrValidation and nothing is written.
func (s *LocalStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("storage: reading upload: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", apperror.ValidationFailed("uploadedphoto", "uploaded file is not a supported image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return "", apperror.ValidationFailed("uploadedphoto",
			fmt.Sprintf("image is %dx%d, at most %d pixels are accepted", cfg.Width, cfg.Height, MaxImagePixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", apperror.ValidationFailed("uploadedphoto", "uploaded file is not a supported image")
	}
	ext, ok := extensions[format]
	if !ok {
		return "", apperror.ValidationFailed("uploadedphoto", fmt.Sprintf("unsupported image format %q", format))
	}

	name := "U" + model.NewID() + ext

	if err := os.WriteFile(filepath.Join(s.imageDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("storage: writing image %s: %w", name, err)
	}

	if err := s.writeThumbnail(name, img); err != nil {
		_ = os.Remove(filepath.Join(s.imageDir, name))
		return "", err
	}

	return name, nil
}

func (s *LocalStore) writeThumbnail(name string, img image.Image) error {
	thumb := resize.Thumbnail(s.thumbSize, s.thumbSize, img, resize.Lanczos3)

	path := filepath.Join(s.thumbnailDir, ThumbnailName(name))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: creating thumbnail %s: %w", path, err)
	}

	if err := jpeg.Encode(f, thumb, &jpeg.Options{Quality: 85}); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("storage: encoding thumbnail %s: %w", path, err)
	}
	return f.Close()
}

// Delete removes an image and its thumbnail. Files that are already gone
// are not an error.
func (s *LocalStore) Delete(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("storage: refusing to delete %q", name)
	}

	for _, path := range []string{
		filepath.Join(s.imageDir, name),
		filepath.Join(s.thumbnailDir, ThumbnailName(name)),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage: removing %s: %w", path, err)
		}
	}
	return nil
}

// ThumbnailName is the file name of name's thumbnail. Thumbnails are always
// JPEG.
func ThumbnailName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}
