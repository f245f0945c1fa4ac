// Package preprocess turns a decoded frame into the NCHW float32 tensor the
// ONNX model expects, using a letterbox resize that preserves aspect ratio
// (spec §4.3) and pooled buffers to avoid per-request allocation churn.
package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/blue-onyx-go/blueonyx/internal/mempool"
	"github.com/disintegration/imaging"
)

// Letterbox describes the geometric transform applied to fit an image into
// a target square (or rectangular) canvas without distorting its aspect
// ratio: a uniform scale followed by centered padding. Postprocessing uses
// it to map model-space box coordinates back to the original frame.
type Letterbox struct {
	Scale     float64
	PadLeft   int
	PadTop    int
	OrigWidth  int
	OrigHeight int
	TargetWidth  int
	TargetHeight int
}

// InvertX maps an x coordinate in target (model input) space back to
// original frame space.
func (l Letterbox) InvertX(x float64) float64 {
	return (x - float64(l.PadLeft)) / l.Scale
}

// InvertY maps a y coordinate in target (model input) space back to
// original frame space.
func (l Letterbox) InvertY(y float64) float64 {
	return (y - float64(l.PadTop)) / l.Scale
}

// Resize letterboxes img to fit exactly within targetW x targetH: scales
// by min(targetW/width, targetH/height), up or down, to preserve aspect
// ratio using Lanczos resampling, then
// pads the remainder with fillValue (a gray level 0-255, per §9/§13's
// per-model-family default). Returns the composited image and the
// transform needed to invert box coordinates later.
func Resize(img image.Image, targetW, targetH, fillValue int) (image.Image, Letterbox, error) {
	if img == nil {
		return nil, Letterbox{}, fmt.Errorf("preprocess: input image is nil")
	}
	if targetW <= 0 || targetH <= 0 {
		return nil, Letterbox{}, fmt.Errorf("preprocess: invalid target size %dx%d", targetW, targetH)
	}

	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW <= 0 || origH <= 0 {
		return nil, Letterbox{}, fmt.Errorf("preprocess: input image has empty bounds")
	}

	scale := minFloat(float64(targetW)/float64(origW), float64(targetH)/float64(origH))

	newW := int(float64(origW) * scale)
	newH := int(float64(origH) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := img
	if newW != origW || newH != origH {
		resized = imaging.Resize(img, newW, newH, imaging.Lanczos)
	}

	fill := color.Gray{Y: uint8(clampByte(fillValue))}
	canvas := imaging.New(targetW, targetH, fill)

	padLeft := (targetW - newW) / 2
	padTop := (targetH - newH) / 2
	composited := imaging.Paste(canvas, resized, image.Pt(padLeft, padTop))

	return composited, Letterbox{
		Scale:        scale,
		PadLeft:      padLeft,
		PadTop:       padTop,
		OrigWidth:    origW,
		OrigHeight:   origH,
		TargetWidth:  targetW,
		TargetHeight: targetH,
	}, nil
}

// Pack converts img (already at exactly width x height) into a pooled NCHW
// float32 tensor normalized to [0,1]. Callers must call mempool.PutFloat32
// on the returned slice once the inference call that consumes it returns.
func Pack(img image.Image, width, height int) []float32 {
	tensor := mempool.GetFloat32(3 * width * height)
	bounds := img.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			idx := y*width + x
			tensor[idx] = float32(r>>8) / 255.0
			tensor[width*height+idx] = float32(g>>8) / 255.0
			tensor[2*width*height+idx] = float32(b>>8) / 255.0
		}
	}
	return tensor
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
