package onnxrt

import (
	"fmt"

	"github.com/yalue/onnxruntime_go"
)

// FloatData extracts the []float32 backing slice from a generic ONNX
// Runtime output value, which callers get back as an opaque
// onnxruntime_go.Value from Session.Run.
func FloatData(v onnxruntime_go.Value) ([]float32, error) {
	t, ok := v.(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnxrt: output value is not a float32 tensor (got %T)", v)
	}
	return t.GetData(), nil
}

// Shape returns the dimensions of a generic ONNX Runtime output value.
func Shape(v onnxruntime_go.Value) ([]int64, error) {
	t, ok := v.(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnxrt: output value is not a float32 tensor (got %T)", v)
	}
	return t.GetShape(), nil
}

// DestroyAll destroys every value in vs, collecting (not stopping on) the
// first error so callers always attempt to release every tensor.
func DestroyAll(vs []onnxruntime_go.Value) error {
	var firstErr error
	for _, v := range vs {
		if v == nil {
			continue
		}
		if err := v.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NCHWSize returns the element count of an NCHW tensor of the given shape.
func NCHWSize(c, h, w int) int {
	return c * h * w
}
