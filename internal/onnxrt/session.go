package onnxrt

import (
	"fmt"
	"log/slog"

	"github.com/yalue/onnxruntime_go"
)

// Family identifies which output-decoding scheme a model uses (spec §4.4 vs
// §4.5). It is auto-probed from the model's output tensor count, and the
// configured Model.Type is treated as an override when it disagrees.
type Family int

const (
	// FamilyAnchor models emit a single dense grid tensor of per-anchor
	// objectness/class scores and box offsets (§4.5).
	FamilyAnchor Family = iota
	// FamilyTransformer models emit pre-decoded per-query boxes and class
	// logits/scores across two or more output tensors, with no anchor
	// grid or NMS step required (§4.4).
	FamilyTransformer
)

func (f Family) String() string {
	if f == FamilyTransformer {
		return "transformer"
	}
	return "anchor"
}

// Options configures session creation.
type Options struct {
	ModelPath    string
	GPU          GPUOptions
	IntraThreads int
	InterThreads int
	// TypeHint is the configured Model.Type ("transformer"/"anchor"); an
	// empty string means "trust the probe".
	TypeHint string
}

// Session wraps a loaded ONNX model along with the metadata the detection
// pipeline needs to build input tensors and decode outputs.
type Session struct {
	raw *onnxruntime_go.DynamicAdvancedSession

	InputName   string
	OutputNames []string

	// InputShape is (channels, height, width) read from the model's
	// static input dimensions. A dimension of -1 (dynamic) surfaces as 0
	// and the caller must supply it at preprocess time.
	Channels, Height, Width int

	Family Family
	// ClassCount is the number of classes the output head produces,
	// used to validate the classes sidecar (§4.1).
	ClassCount int

	UsedGPU bool
}

// Open loads the model at opts.ModelPath and returns a ready-to-use Session.
func Open(opts Options) (*Session, error) {
	if err := EnsureEnvironment(); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnxrt: reading model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnxrt: expected exactly 1 input tensor, model has %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnxrt: model declares no output tensors")
	}

	input := inputs[0]
	if len(input.Dimensions) != 4 {
		return nil, fmt.Errorf("onnxrt: expected a 4D (NCHW) input tensor, got %dD", len(input.Dimensions))
	}
	channels := dimOrZero(input.Dimensions[1])
	height := dimOrZero(input.Dimensions[2])
	width := dimOrZero(input.Dimensions[3])

	family, classCount := probeFamily(outputs, channels)
	if opts.TypeHint == "transformer" {
		family = FamilyTransformer
	} else if opts.TypeHint == "anchor" {
		family = FamilyAnchor
	}

	sessionOptions, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnxrt: creating session options: %w", err)
	}
	defer func() { _ = sessionOptions.Destroy() }()

	usedGPU, err := configureExecutionProviders(sessionOptions, opts.GPU)
	if err != nil {
		return nil, err
	}
	if !usedGPU && !opts.GPU.ForceCPU {
		slog.Info("CUDA execution provider unavailable, falling back to CPU", "gpu_index", opts.GPU.Index)
	}

	if opts.IntraThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(opts.IntraThreads); err != nil {
			return nil, fmt.Errorf("onnxrt: setting intra-op thread count: %w", err)
		}
	}
	if opts.InterThreads > 0 {
		if err := sessionOptions.SetInterOpNumThreads(opts.InterThreads); err != nil {
			return nil, fmt.Errorf("onnxrt: setting inter-op thread count: %w", err)
		}
	}

	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		outputNames[i] = o.Name
	}

	raw, err := onnxruntime_go.NewDynamicAdvancedSession(opts.ModelPath, []string{input.Name}, outputNames, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("onnxrt: creating ONNX session: %w", err)
	}

	return &Session{
		raw:         raw,
		InputName:   input.Name,
		OutputNames: outputNames,
		Channels:    channels,
		Height:      height,
		Width:       width,
		Family:      family,
		ClassCount:  classCount,
		UsedGPU:     usedGPU,
	}, nil
}

func dimOrZero(d int64) int {
	if d <= 0 {
		return 0
	}
	return int(d)
}

// probeFamily guesses the model family from its output tensor count (§4.4):
// three outputs (labels[1,N], boxes[1,N,4], scores[1,N]) is the transformer
// shape; exactly one output ([1,K,5+C]) is the anchor grid. classCount is
// read from the anchor output's last dimension (minus the 5 box/objectness
// columns); a transformer model carries no class dimension in its tensor
// shapes (labels are pre-decoded ids), so its class count is left at 0 and
// the classes sidecar is trusted without a cross-check.
func probeFamily(outputs []onnxruntime_go.InputOutputInfo, _ int) (Family, int) {
	if len(outputs) == 1 {
		o := outputs[0]
		if len(o.Dimensions) == 3 {
			last := dimOrZero(o.Dimensions[2])
			if last > 5 {
				return FamilyAnchor, last - 5
			}
		}
		return FamilyAnchor, 0
	}
	return FamilyTransformer, 0
}

// Run executes inference with a single NCHW float32 input and returns the
// raw output tensors. Callers must Destroy every returned value.
func (s *Session) Run(shape []int64, data []float32) ([]onnxruntime_go.Value, error) {
	input, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(shape...), data)
	if err != nil {
		return nil, fmt.Errorf("onnxrt: creating input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	outputs := make([]onnxruntime_go.Value, len(s.OutputNames))
	if err := s.raw.Run([]onnxruntime_go.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("onnxrt: running inference: %w", err)
	}
	return outputs, nil
}

// Close releases the underlying ONNX Runtime session.
func (s *Session) Close() error {
	if s.raw == nil {
		return nil
	}
	return s.raw.Destroy()
}
