// Package filestore keeps uploaded product images and hands back their public
// URLs.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nfnt/resize"
)

const (
	Prefix          = "product-images"
	DefaultMaxWidth = 800
	jpegQuality     = 80
)

var (
	ErrStoragePermissionDenied = errors.New("storage/unauthorized")
	ErrInvalidImage            = errors.New("storage/invalid-image")
)

// RequiredRules is the storage rule set that lets signed-in sellers upload.
const RequiredRules = `rules_version = '2';
service firebase.storage {
  match /b/{bucket}/o {
    match /{allPaths=**} {
      allow read, write: if request.auth != null;
    }
  }
}`

type Store interface {
	Upload(ctx context.Context, name string, data []byte) (url string, err error)
}

var whitespace = regexp.MustCompile(`\s+`)

// ObjectName places an upload under Prefix, stamped with the upload time in
// unix milliseconds.
func ObjectName(name string, at time.Time) string {
	base := whitespace.ReplaceAllString(filepath.Base(name), "_")
	return path.Join(Prefix, strconv.FormatInt(at.UnixMilli(), 10)+"_"+base)
}

type DiskOptions struct {
	Root       string
	BaseURL    string
	MaxWidth   uint
	Authorized func() bool
	Logger     *log.Logger
}

// Disk stores uploads below Root and serves them from BaseURL.
type Disk struct {
	root       string
	baseURL    string
	maxWidth   uint
	authorized func() bool
	logger     *log.Logger
	now        func() time.Time
}

func NewDisk(opts DiskOptions) *Disk {
	if opts.MaxWidth == 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Disk{
		root:       opts.Root,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxWidth:   opts.MaxWidth,
		authorized: opts.Authorized,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Root is the directory uploads are written to.
func (d *Disk) Root() string { return d.root }

func (d *Disk) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if d.authorized == nil || !d.authorized() {
		return "", ErrStoragePermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := d.optimize(name, data)
	if err != nil {
		return "", err
	}

	object := ObjectName(name, d.now())
	target := filepath.Join(d.root, filepath.FromSlash(object))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	d.logger.Printf("filestore: stored %s (%d bytes)", object, len(body))
	return d.baseURL + "/" + object, nil
}

// optimize downsizes PNG and JPEG images wider than maxWidth, keeping their
// format. Anything else is stored as given.
func (d *Disk) optimize(name string, data []byte) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", ErrInvalidImage, err)
	}
	if uint(img.Bounds().Dx()) <= d.maxWidth {
		return data, nil
	}

	resized := resize.Resize(d.maxWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if ext == ".png" {
		err = png.Encode(&buf, resized)
	} else {
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
