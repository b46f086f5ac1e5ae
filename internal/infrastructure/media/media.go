// Package media re-encodes uploaded and downloaded images into the image store.
package media

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	// decoders for image.Decode
	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
)

// URLPrefix is where the image directory is served
const URLPrefix = "/images"

// ErrTooLarge is returned when the input exceeds the configured byte limit
var ErrTooLarge = errors.New("image exceeds the upload size limit")

// Store writes JPEG images under a date-partitioned directory tree
type Store struct {
	dir      string
	maxBytes int64
	maxWidth int
	quality  int
	now      func() time.Time
}

// NewStore creates an image store rooted at dir
func NewStore(dir string, cfg config.UploadConfig) *Store {
	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Store{
		dir:      dir,
		maxBytes: cfg.MaxBytes,
		maxWidth: cfg.MaxWidth,
		quality:  quality,
		now:      time.Now,
	}
}

// Dir returns the root directory of stored images
func (s *Store) Dir() string {
	return s.dir
}

// Save decodes r, downsizes it to the configured width and stores it as JPEG.
// It returns the public URL path of the stored file.
func (s *Store) Save(r io.Reader) (string, error) {
	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}
	counted := &countingReader{r: r}

	src, _, err := image.Decode(counted)
	if s.maxBytes > 0 && counted.n > s.maxBytes {
		return "", ErrTooLarge
	}
	if err != nil {
		return "", fmt.Errorf("%w: unsupported image: %v", entities.ErrValidation, err)
	}

	img := s.resize(src)

	now := s.now()
	rel := path.Join(now.Format("2006"), now.Format("01"), now.Format("02"), uuid.NewString()+".jpg")
	target := filepath.Join(s.dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: s.quality}); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close image: %w", err)
	}

	return URLPrefix + "/" + rel, nil
}

func (s *Store) resize(src image.Image) image.Image {
	bounds := src.Bounds()
	if s.maxWidth <= 0 || bounds.Dx() <= s.maxWidth {
		return flatten(src)
	}

	height := bounds.Dy() * s.maxWidth / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, s.maxWidth, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

// flatten composes transparent images onto white since JPEG has no alpha
func flatten(src image.Image) image.Image {
	if _, opaque := src.(*image.YCbCr); opaque {
		return src
	}
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
