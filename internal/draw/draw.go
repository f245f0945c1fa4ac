// Package draw renders detection overlays onto a decoded frame for the
// optional debug snapshots named by spec §4.11. It is only exercised when
// save_image_path is configured; the detection response itself never
// carries image bytes.
package draw

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/blue-onyx-go/blueonyx/internal/imaging"
	"github.com/blue-onyx-go/blueonyx/internal/postprocess"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	boxLineWidth  = 2
	captionMargin = 2
)

var boxColor = color.RGBA{R: 0, G: 220, B: 0, A: 255}

// Overlay draws box outlines and "label (confidence%)" captions for every
// detection onto a copy of img, leaving the original untouched.
func Overlay(img image.Image, detections []postprocess.Detection) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	for _, d := range detections {
		drawBox(out, d)
		drawCaption(out, d)
	}
	return out
}

func drawBox(img *image.RGBA, d postprocess.Detection) {
	x0, y0 := int(d.XMin), int(d.YMin)
	x1, y1 := int(d.XMax), int(d.YMax)

	for t := 0; t < boxLineWidth; t++ {
		drawHLine(img, x0, x1, y0+t)
		drawHLine(img, x0, x1, y1-t)
		drawVLine(img, x0+t, y0, y1)
		drawVLine(img, x1-t, y0, y1)
	}
}

func drawHLine(img *image.RGBA, x0, x1, y int) {
	if y < img.Bounds().Min.Y || y >= img.Bounds().Max.Y {
		return
	}
	for x := x0; x <= x1; x++ {
		if x < img.Bounds().Min.X || x >= img.Bounds().Max.X {
			continue
		}
		img.Set(x, y, boxColor)
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int) {
	if x < img.Bounds().Min.X || x >= img.Bounds().Max.X {
		return
	}
	for y := y0; y <= y1; y++ {
		if y < img.Bounds().Min.Y || y >= img.Bounds().Max.Y {
			continue
		}
		img.Set(x, y, boxColor)
	}
}

func drawCaption(img *image.RGBA, d postprocess.Detection) {
	caption := fmt.Sprintf("%s (%.0f%%)", d.Label, d.Confidence*100)
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: boxColor},
		Face: face,
	}
	x := int(d.XMin)
	y := int(d.YMin) - captionMargin
	if y < face.Metrics().Height.Ceil() {
		y = int(d.YMin) + face.Metrics().Height.Ceil()
	}
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(caption)
}

// SaveDebugSnapshot writes the annotated JPEG (always) and, if saveOriginal
// is set, the unannotated original, both named by requestID under dir
// (spec §4.11).
func SaveDebugSnapshot(dir, requestID string, original image.Image, detections []postprocess.Detection, saveOriginal bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // operator-configured debug directory
		return fmt.Errorf("draw: creating snapshot directory %s: %w", dir, err)
	}

	annotated := Overlay(original, detections)
	annotatedBytes, err := imaging.EncodeJPEG(annotated, 90)
	if err != nil {
		return fmt.Errorf("draw: encoding annotated snapshot: %w", err)
	}
	annotatedPath := filepath.Join(dir, requestID+"_annotated.jpg")
	if err := os.WriteFile(annotatedPath, annotatedBytes, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("draw: writing annotated snapshot: %w", err)
	}

	if !saveOriginal {
		return nil
	}
	originalBytes, err := imaging.EncodeJPEG(original, 90)
	if err != nil {
		return fmt.Errorf("draw: encoding reference snapshot: %w", err)
	}
	originalPath := filepath.Join(dir, requestID+"_original.jpg")
	if err := os.WriteFile(originalPath, originalBytes, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("draw: writing reference snapshot: %w", err)
	}
	return nil
}
