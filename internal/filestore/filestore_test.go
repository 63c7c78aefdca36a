package filestore

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newDisk(t *testing.T, authorized bool) *Disk {
	t.Helper()
	d := NewDisk(DiskOptions{
		Root:       t.TempDir(),
		BaseURL:    "http://localhost:8080/",
		MaxWidth:   100,
		Authorized: func() bool { return authorized },
	})
	d.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return d
}

func TestObjectName(t *testing.T) {
	at := time.UnixMilli(42)
	require.Equal(t, "product-images/42_my_new_bike.png", ObjectName("my new bike.png", at))
	require.Equal(t, "product-images/42_a_b.jpg", ObjectName("a \t b.jpg", at))
	require.Equal(t, "product-images/42_x.png", ObjectName("../../x.png", at))
}

func TestDisk_UploadRequiresIdentity(t *testing.T) {
	_, err := newDisk(t, false).Upload(context.Background(), "a.png", pngBytes(t, 10, 10))
	require.ErrorIs(t, err, ErrStoragePermissionDenied)
}

func TestDisk_UploadResizesWideImages(t *testing.T) {
	d := newDisk(t, true)

	url, err := d.Upload(context.Background(), "wide bike.png", pngBytes(t, 400, 40))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/product-images/1700000000000_wide_bike.png", url)

	f, err := os.Open(filepath.Join(d.Root(), "product-images", "1700000000000_wide_bike.png"))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 100, cfg.Width)
	require.Equal(t, 10, cfg.Height)
}

func TestDisk_UploadKeepsSmallAndUnknownFiles(t *testing.T) {
	d := newDisk(t, true)

	small := pngBytes(t, 50, 5)
	_, err := d.Upload(context.Background(), "small.png", small)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(d.Root(), "product-images", "1700000000000_small.png"))
	require.NoError(t, err)
	require.Equal(t, small, got)

	_, err = d.Upload(context.Background(), "spec.pdf", []byte("%PDF"))
	require.NoError(t, err)
	got, err = os.ReadFile(filepath.Join(d.Root(), "product-images", "1700000000000_spec.pdf"))
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF"), got)
}

func TestDisk_UploadRejectsCorruptImage(t *testing.T) {
	_, err := newDisk(t, true).Upload(context.Background(), "broken.jpg", []byte("nope"))
	require.ErrorIs(t, err, ErrInvalidImage)
	require.ErrorContains(t, err, "decode image")

	_, err = newDisk(t, true).Upload(context.Background(), "broken.png", pngBytes(t, 10, 10)[:20])
	require.ErrorIs(t, err, ErrInvalidImage)
}
