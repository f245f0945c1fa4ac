// Package detector composes image decoding, letterbox preprocessing, ONNX
// inference, and postprocessing into the single detection pipeline the
// worker drives for every request (spec §4.2-§4.6). A Detector is not
// re-entrant: callers must serialize calls to Detect, exactly as the
// single dedicated worker goroutine does.
package detector

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blue-onyx-go/blueonyx/internal/classes"
	"github.com/blue-onyx-go/blueonyx/internal/detecterr"
	"github.com/blue-onyx-go/blueonyx/internal/draw"
	"github.com/blue-onyx-go/blueonyx/internal/imaging"
	"github.com/blue-onyx-go/blueonyx/internal/mempool"
	"github.com/blue-onyx-go/blueonyx/internal/onnxrt"
	"github.com/blue-onyx-go/blueonyx/internal/postprocess"
	"github.com/blue-onyx-go/blueonyx/internal/preprocess"
	"github.com/yalue/onnxruntime_go"
)

// Config configures a Detector's model and default decoding behavior.
type Config struct {
	ModelPath           string
	ClassesPath         string
	TypeHint            string
	ConfidenceThreshold float64
	ObjectFilter        []string
	GPU                 onnxrt.GPUOptions
	IntraThreads        int
	InterThreads        int
	IoUThreshold        float64

	// SaveImagePath, when non-empty, makes Detect write an annotated
	// snapshot of every frame it processes under this directory (§4.11).
	SaveImagePath string
	// SaveRefImage additionally writes the undrawn original next to the
	// annotated snapshot.
	SaveRefImage bool
}

// Detector runs the full detection pipeline for one loaded model.
type Detector struct {
	session *onnxrt.Session
	labels  *classes.Table
	cfg     Config
}

// Result is a single request's decoded detections plus per-stage timings,
// used to populate the three duration fields of the wire response (§5).
type Result struct {
	Detections          []postprocess.Detection
	DecodeMs            float64
	PreprocessMs        float64
	InferenceMs         float64
	PostprocessMs       float64
	EffectiveThreshold  float64
}

// New loads the model and its classes sidecar and builds a ready Detector.
func New(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, detecterr.Wrap(detecterr.KindStartupFailure, "load-model", err)
	}

	labels, err := classes.Load(cfg.ClassesPath)
	if err != nil {
		return nil, detecterr.Wrap(detecterr.KindStartupFailure, "load-classes", err)
	}

	slog.Info("loading detection model",
		"model_path", cfg.ModelPath,
		"classes_path", cfg.ClassesPath,
		"force_cpu", cfg.GPU.ForceCPU)

	session, err := onnxrt.Open(onnxrt.Options{
		ModelPath:    cfg.ModelPath,
		GPU:          cfg.GPU,
		IntraThreads: cfg.IntraThreads,
		InterThreads: cfg.InterThreads,
		TypeHint:     cfg.TypeHint,
	})
	if err != nil {
		return nil, detecterr.Wrap(detecterr.KindStartupFailure, "open-session", err)
	}

	if session.ClassCount > 0 {
		if err := labels.ValidateCount(session.ClassCount); err != nil {
			_ = session.Close()
			return nil, detecterr.Wrap(detecterr.KindStartupFailure, "validate-classes", err)
		}
	}

	slog.Info("detection model ready",
		"family", session.Family.String(),
		"input", fmt.Sprintf("%dx%dx%d", session.Channels, session.Height, session.Width),
		"classes", labels.Len(),
		"used_gpu", session.UsedGPU)

	return &Detector{session: session, labels: labels, cfg: cfg}, nil
}

// Close releases the underlying ONNX Runtime session.
func (d *Detector) Close() error {
	return d.session.Close()
}

// Family reports whether the loaded model is transformer- or anchor-style.
func (d *Detector) Family() string {
	return d.session.Family.String()
}

// ExecutionProvider reports "cuda" or "cpu", reflecting whether the session
// actually landed on the GPU execution provider or fell back to CPU.
func (d *Detector) ExecutionProvider() string {
	if d.session.UsedGPU {
		return "cuda"
	}
	return "cpu"
}

// ModelPath returns the path of the loaded model, for stats/log metadata.
func (d *Detector) ModelPath() string {
	return d.cfg.ModelPath
}

// Detect decodes a JPEG frame, runs the model, and returns letterbox-
// inverted detections filtered at the effective confidence threshold
// (the greater of overrideThreshold, if non-nil, and cfg.ConfidenceThreshold,
// per §13). Errors are always *detecterr.Error.
func (d *Detector) Detect(requestID string, jpegBytes []byte, overrideThreshold *float64) (Result, error) {
	var result Result

	decodeStart := time.Now()
	img, err := imaging.DecodeJPEG(jpegBytes)
	result.DecodeMs = msSince(decodeStart)
	if err != nil {
		return result, err
	}

	fillValue := d.labels.ResolveLetterboxFill(d.session.Family == onnxrt.FamilyAnchor)

	preprocessStart := time.Now()
	letterboxed, lb, err := preprocess.Resize(img, d.session.Width, d.session.Height, fillValue)
	if err != nil {
		return result, detecterr.Wrap(detecterr.KindInferenceFailure, "preprocess", err)
	}
	tensor := preprocess.Pack(letterboxed, d.session.Width, d.session.Height)
	defer mempool.PutFloat32(tensor)
	result.PreprocessMs = msSince(preprocessStart)

	inferStart := time.Now()
	shape := []int64{1, int64(d.session.Channels), int64(d.session.Height), int64(d.session.Width)}
	outputs, err := d.session.Run(shape, tensor)
	if err != nil {
		return result, detecterr.Wrap(detecterr.KindInferenceFailure, "infer", err)
	}
	defer func() { _ = onnxrt.DestroyAll(outputs) }()
	result.InferenceMs = msSince(inferStart)

	threshold := d.cfg.ConfidenceThreshold
	if overrideThreshold != nil && *overrideThreshold > threshold {
		threshold = *overrideThreshold
	}
	result.EffectiveThreshold = threshold

	opts := postprocess.Options{
		Threshold:    threshold,
		Labels:       d.labels,
		Allow:        d.cfg.ObjectFilter,
		Letterbox:    lb,
		IoUThreshold: d.cfg.IoUThreshold,
	}

	postStart := time.Now()
	detections, err := d.decode(outputs, opts)
	result.PostprocessMs = msSince(postStart)
	if err != nil {
		return result, detecterr.Wrap(detecterr.KindInferenceFailure, "postprocess", err)
	}
	result.Detections = detections

	if d.cfg.SaveImagePath != "" {
		if err := d.saveSnapshot(requestID, img, detections); err != nil {
			slog.Warn("saving debug snapshot failed", "request_id", requestID, "error", err)
		}
	}

	return result, nil
}

// saveSnapshot writes the annotated frame (always) and the undrawn
// original (when SaveRefImage is set) to SaveImagePath, named after
// requestID per §4.11.
func (d *Detector) saveSnapshot(requestID string, img image.Image, detections []postprocess.Detection) error {
	if err := os.MkdirAll(d.cfg.SaveImagePath, 0o755); err != nil {
		return fmt.Errorf("detector: creating save_image_path: %w", err)
	}

	annotated := draw.Overlay(img, detections)
	annotatedJPEG, err := imaging.EncodeJPEG(annotated, 85)
	if err != nil {
		return fmt.Errorf("detector: encoding annotated snapshot: %w", err)
	}
	annotatedPath := filepath.Join(d.cfg.SaveImagePath, requestID+".jpg")
	if err := os.WriteFile(annotatedPath, annotatedJPEG, 0o644); err != nil { //nolint:gosec // operator-configured path
		return fmt.Errorf("detector: writing annotated snapshot: %w", err)
	}

	if !d.cfg.SaveRefImage {
		return nil
	}
	refJPEG, err := imaging.EncodeJPEG(img, 85)
	if err != nil {
		return fmt.Errorf("detector: encoding reference snapshot: %w", err)
	}
	refPath := filepath.Join(d.cfg.SaveImagePath, requestID+"_ref.jpg")
	if err := os.WriteFile(refPath, refJPEG, 0o644); err != nil { //nolint:gosec // operator-configured path
		return fmt.Errorf("detector: writing reference snapshot: %w", err)
	}
	return nil
}

func (d *Detector) decode(outputs []onnxruntime_go.Value, opts postprocess.Options) ([]postprocess.Detection, error) {
	return decodeOutputs(d.session, outputs, opts)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
