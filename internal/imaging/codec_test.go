package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/blue-onyx-go/blueonyx/internal/detecterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	assert.True(t, Sniff([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.False(t, Sniff([]byte{0x89, 0x50, 0x4E, 0x47}))
	assert.False(t, Sniff([]byte{0xFF}))
	assert.False(t, Sniff(nil))
}

func TestDecodeJPEGSuccess(t *testing.T) {
	data := encodeTestJPEG(t, 32, 32)
	img, err := DecodeJPEG(data)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestDecodeJPEGUnsupportedFormat(t *testing.T) {
	_, err := DecodeJPEG([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A})
	require.Error(t, err)
	kind, ok := detecterr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, detecterr.KindUnsupportedFormat, kind)
}

func TestDecodeJPEGMalformed(t *testing.T) {
	truncated := append([]byte{}, jpegMagic...)
	truncated = append(truncated, 0x00, 0x01, 0x02)
	_, err := DecodeJPEG(truncated)
	require.Error(t, err)
	kind, ok := detecterr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, detecterr.KindMalformedImage, kind)
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	data, err := EncodeJPEG(img, 90)
	require.NoError(t, err)
	assert.True(t, Sniff(data))
}
