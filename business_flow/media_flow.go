// Package businessflow contains the core business logic and use cases for media upload workflows
package businessflow

import (
	"bytes"
	"context"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/utils"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MediaFlow stores uploaded catalog and content images and serves their
// thumbnails.
type MediaFlow interface {
	SaveImage(ctx context.Context, reader io.Reader, originalFilename string, metadata *ClientMetadata) (string, error)
	Thumbnail(ctx context.Context, storedPath string) (string, []byte, error)
	Read(ctx context.Context, storedPath string) (string, []byte, error)
}

// MediaFlowImpl implements MediaFlow
type MediaFlowImpl struct {
	cfg config.UploadsConfig
}

func NewMediaFlow(cfg config.UploadsConfig) MediaFlow {
	return &MediaFlowImpl{cfg: cfg}
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// SaveImage validates the upload by extension and sniffed content type,
// then stores it under a date directory with a random filename. Returns
// the stored path relative to the uploads base.
func (f *MediaFlowImpl) SaveImage(ctx context.Context, reader io.Reader, originalFilename string, metadata *ClientMetadata) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if !allowedImageExts[ext] {
		return "", ErrUnsupportedImage
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	head = head[:n]

	detected := http.DetectContentType(head)
	if detected != "application/octet-stream" && !strings.HasPrefix(detected, "image/") {
		return "", ErrUnsupportedImage
	}

	dateDir := utils.UTCNow().Format("2006-01-02")
	baseDir := filepath.Join(f.cfg.BaseDir, dateDir)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", err
	}

	filename := uuid.New().String() + ext
	fullPath := filepath.Join(baseDir, filename)
	dst, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	fullReader := io.MultiReader(bytes.NewReader(head), reader)
	limited := io.LimitReader(fullReader, f.cfg.MaxFileSize+1)
	written, err := io.Copy(dst, limited)
	if err != nil {
		_ = os.Remove(fullPath)
		return "", err
	}
	if written > f.cfg.MaxFileSize {
		_ = os.Remove(fullPath)
		return "", ErrImageTooLarge
	}

	return filepath.ToSlash(filepath.Join(dateDir, filename)), nil
}

// Thumbnail decodes the stored image and returns a downscaled JPEG.
func (f *MediaFlowImpl) Thumbnail(ctx context.Context, storedPath string) (string, []byte, error) {
	cleanPath, err := f.sanitizePath(storedPath)
	if err != nil {
		return "", nil, err
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", nil, err
	}

	maxDim := f.cfg.ThumbnailWidth
	if maxDim <= 0 {
		maxDim = 320
	}
	thumb := resizeImage(img, maxDim)
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return "", nil, err
	}
	return "image/jpeg", buf.Bytes(), nil
}

// Read returns the original image bytes and content type.
func (f *MediaFlowImpl) Read(ctx context.Context, storedPath string) (string, []byte, error) {
	cleanPath, err := f.sanitizePath(storedPath)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", nil, err
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(cleanPath)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return contentType, data, nil
}

// sanitizePath confines storedPath inside the uploads base directory.
func (f *MediaFlowImpl) sanitizePath(storedPath string) (string, error) {
	if storedPath == "" {
		return "", NewBusinessError("INVALID_PATH", "path is empty", nil)
	}
	if filepath.IsAbs(storedPath) {
		return "", NewBusinessError("INVALID_PATH", "absolute path not allowed", nil)
	}
	joined := filepath.Clean(filepath.Join(f.cfg.BaseDir, filepath.FromSlash(storedPath)))
	base := filepath.Clean(f.cfg.BaseDir)
	if !strings.HasPrefix(filepath.ToSlash(joined), filepath.ToSlash(base)) {
		return "", NewBusinessError("INVALID_PATH", "path is outside allowed directory", nil)
	}
	return joined, nil
}

func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
