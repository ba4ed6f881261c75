package businessflow

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmart/velmart-backend/config"
)

func newMediaFlowForTest(t *testing.T) MediaFlow {
	t.Helper()
	return NewMediaFlow(config.UploadsConfig{
		BaseDir:        t.TempDir(),
		MaxFileSize:    1 << 20,
		ThumbnailWidth: 64,
	})
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestSaveImageAndReadBack(t *testing.T) {
	flow := newMediaFlowForTest(t)
	ctx := context.Background()
	data := encodePNG(t, 10, 10)

	stored, err := flow.SaveImage(ctx, bytes.NewReader(data), "photo.png", nil)
	require.NoError(t, err)
	assert.NotContains(t, stored, "..")

	contentType, got, err := flow.Read(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, data, got)
}

func TestSaveImageRejectsBadUploads(t *testing.T) {
	flow := newMediaFlowForTest(t)
	ctx := context.Background()

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := flow.SaveImage(ctx, bytes.NewReader(encodePNG(t, 4, 4)), "malware.exe", nil)
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})

	t.Run("non-image content behind an image extension", func(t *testing.T) {
		_, err := flow.SaveImage(ctx, bytes.NewReader([]byte("<html><body>nope</body></html>")), "page.jpg", nil)
		assert.ErrorIs(t, err, ErrUnsupportedImage)
	})

	t.Run("oversized upload", func(t *testing.T) {
		flow := NewMediaFlow(config.UploadsConfig{BaseDir: t.TempDir(), MaxFileSize: 64})
		_, err := flow.SaveImage(ctx, bytes.NewReader(encodePNG(t, 100, 100)), "big.png", nil)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})
}

func TestThumbnailDownscalesLargeImages(t *testing.T) {
	flow := newMediaFlowForTest(t)
	ctx := context.Background()

	stored, err := flow.SaveImage(ctx, bytes.NewReader(encodePNG(t, 640, 480)), "wide.png", nil)
	require.NoError(t, err)

	contentType, data, err := flow.Thumbnail(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	thumb, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, thumb.Bounds().Dx())
	assert.Equal(t, 48, thumb.Bounds().Dy())
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	flow := newMediaFlowForTest(t)
	ctx := context.Background()

	stored, err := flow.SaveImage(ctx, bytes.NewReader(encodePNG(t, 20, 20)), "icon.png", nil)
	require.NoError(t, err)

	_, data, err := flow.Thumbnail(ctx, stored)
	require.NoError(t, err)

	thumb, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 20, thumb.Bounds().Dx())
}

func TestMediaPathTraversalIsBlocked(t *testing.T) {
	flow := newMediaFlowForTest(t)
	ctx := context.Background()

	for _, p := range []string{"", "../outside.png", "/etc/passwd", "a/../../b.png"} {
		_, _, err := flow.Read(ctx, p)
		assert.Error(t, err, "path %q must be rejected", p)
	}
}
