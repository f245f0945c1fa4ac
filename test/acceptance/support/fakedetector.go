// Package support provides the godog step definitions and an in-process
// test double for the detection engine, exercising the real HTTP server
// (internal/server) and worker (internal/worker) against a fake Detector
// instead of a real ONNX Runtime session — mirroring the teacher's
// httptest-plus-MockPipeline shape in test/integration/cli/support, scaled
// to blue-onyx's single-endpoint domain.
package support

import (
	"bytes"
	"time"

	"github.com/blue-onyx-go/blueonyx/internal/detecterr"
	"github.com/blue-onyx-go/blueonyx/internal/detector"
	"github.com/blue-onyx-go/blueonyx/internal/postprocess"
)

var jpegMagic = []byte{0xFF, 0xD8}

// FakeDetector stands in for a loaded ONNX model: it always "sees" one dog
// box at a fixed confidence, applies the same effective-threshold rule as
// the real detector (§13: max(configured, override)), and can simulate a
// slow inference for the busy/timeout scenarios.
type FakeDetector struct {
	ConfigureThreshold float64
	Delay              time.Duration
	FamilyName         string
}

// NewFakeDetector returns a FakeDetector with blue-onyx's documented
// default confidence threshold and no artificial delay.
func NewFakeDetector() *FakeDetector {
	return &FakeDetector{ConfigureThreshold: 0.5, FamilyName: "anchor"}
}

func (f *FakeDetector) Family() string { return f.FamilyName }

// Detect mirrors detector.Detector.Detect's contract closely enough for
// acceptance tests: magic-byte sniffing for malformed/unsupported bodies,
// the documented threshold-resolution rule, and a single canned detection.
func (f *FakeDetector) Detect(_ string, jpegBytes []byte, overrideThreshold *float64) (detector.Result, error) {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}

	var result detector.Result
	if len(jpegBytes) == 0 {
		return result, detecterr.New(detecterr.KindMalformedImage, "decode", "empty body")
	}
	if !bytes.HasPrefix(jpegBytes, jpegMagic) {
		return result, detecterr.New(detecterr.KindUnsupportedFormat, "decode", "not a JPEG")
	}

	threshold := f.ConfigureThreshold
	if overrideThreshold != nil && *overrideThreshold > threshold {
		threshold = *overrideThreshold
	}
	result.EffectiveThreshold = threshold
	result.InferenceMs = 5
	result.DecodeMs = 1
	result.PreprocessMs = 1
	result.PostprocessMs = 1

	const dogConfidence = 0.9
	if dogConfidence >= threshold {
		result.Detections = []postprocess.Detection{
			{Label: "dog", Confidence: dogConfidence, XMin: 50, YMin: 50, XMax: 300, YMax: 300},
		}
	}
	return result, nil
}
