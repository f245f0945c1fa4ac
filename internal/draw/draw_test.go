package draw

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/blue-onyx-go/blueonyx/internal/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestOverlayDoesNotMutateOriginal(t *testing.T) {
	base := solidImage(100, 100, color.White)
	dets := []postprocess.Detection{{Label: "dog", Confidence: 0.9, XMin: 10, YMin: 10, XMax: 50, YMax: 50}}

	out := Overlay(base, dets)

	assert.Equal(t, color.RGBAModel.Convert(color.White), base.At(20, 20))
	r, g, b, _ := out.At(10, 20).RGBA()
	assert.NotEqual(t, uint32(0xffff), r)
	_ = g
	_ = b
}

func TestSaveDebugSnapshotWritesAnnotatedAndOriginal(t *testing.T) {
	dir := t.TempDir()
	base := solidImage(64, 64, color.White)
	dets := []postprocess.Detection{{Label: "car", Confidence: 0.75, XMin: 5, YMin: 5, XMax: 30, YMax: 30}}

	err := SaveDebugSnapshot(dir, "req-123", base, dets, true)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "req-123_annotated.jpg"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "req-123_original.jpg"))
	assert.NoError(t, err)
}

func TestSaveDebugSnapshotSkipsOriginalWhenNotRequested(t *testing.T) {
	dir := t.TempDir()
	base := solidImage(32, 32, color.White)

	err := SaveDebugSnapshot(dir, "req-456", base, nil, false)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "req-456_original.jpg"))
	assert.True(t, os.IsNotExist(err))
}
