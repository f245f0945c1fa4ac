// Package postprocess turns raw ONNX output tensors into pixel-space
// detections in the original frame's coordinate system, for both supported
// model families (spec §4.4, §4.5).
package postprocess

import (
	"github.com/blue-onyx-go/blueonyx/internal/classes"
	"github.com/blue-onyx-go/blueonyx/internal/preprocess"
)

// Detection is a single decoded, letterbox-inverted, confidence-filtered
// bounding box.
type Detection struct {
	Label      string
	Confidence float64
	XMin       float64
	YMin       float64
	XMax       float64
	YMax       float64
}

// Options bundles the parameters shared by both decoding schemes.
type Options struct {
	// Threshold is the effective confidence threshold (§13: the greater
	// of the configured default and any per-request override).
	Threshold float64
	// Labels resolves a class id to its display name.
	Labels *classes.Table
	// Allow, when non-empty, restricts output to these labels (§4.8's
	// object_filter).
	Allow []string
	// Letterbox inverts model-input coordinates back to the original
	// frame.
	Letterbox preprocess.Letterbox
	// IoUThreshold is the NMS overlap threshold for anchor models (§4.5).
	IoUThreshold float64
}

func (o Options) allowed(label string) bool {
	if len(o.Allow) == 0 {
		return true
	}
	for _, a := range o.Allow {
		if a == label {
			return true
		}
	}
	return false
}

// clampToFrame clips a box to the original frame bounds.
func clampToFrame(d Detection, w, h int) Detection {
	if d.XMin < 0 {
		d.XMin = 0
	}
	if d.YMin < 0 {
		d.YMin = 0
	}
	if d.XMax > float64(w) {
		d.XMax = float64(w)
	}
	if d.YMax > float64(h) {
		d.YMax = float64(h)
	}
	return d
}
