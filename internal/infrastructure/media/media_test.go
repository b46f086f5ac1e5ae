package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveResizesIntoDatedPath(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, config.UploadConfig{MaxBytes: 1 << 20, MaxWidth: 100, Quality: 80})
	store.now = func() time.Time { return time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) }

	url, err := store.Save(bytes.NewReader(pngBytes(t, 400, 200)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/images/2024/05/06/"), url)
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/images/"))))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestSaveRejectsOversizedAndGarbage(t *testing.T) {
	store := NewStore(t.TempDir(), config.UploadConfig{MaxBytes: 64, MaxWidth: 100})

	_, err := store.Save(bytes.NewReader(pngBytes(t, 64, 64)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = store.Save(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, entities.ErrValidation)
}
