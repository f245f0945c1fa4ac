package detector

import (
	"fmt"
	"strings"

	"github.com/blue-onyx-go/blueonyx/internal/onnxrt"
	"github.com/blue-onyx-go/blueonyx/internal/postprocess"
	"github.com/yalue/onnxruntime_go"
)

// decodeOutputs dispatches to the anchor or transformer decoder based on
// the session's probed family.
func decodeOutputs(session *onnxrt.Session, outputs []onnxruntime_go.Value, opts postprocess.Options) ([]postprocess.Detection, error) {
	switch session.Family {
	case onnxrt.FamilyAnchor:
		return decodeAnchorOutputs(outputs, opts)
	case onnxrt.FamilyTransformer:
		return decodeTransformerOutputs(session.OutputNames, outputs, opts)
	default:
		return nil, fmt.Errorf("detector: unknown model family %v", session.Family)
	}
}

func decodeAnchorOutputs(outputs []onnxruntime_go.Value, opts postprocess.Options) ([]postprocess.Detection, error) {
	if len(outputs) != 1 {
		return nil, fmt.Errorf("detector: anchor model must have exactly 1 output, got %d", len(outputs))
	}
	data, err := onnxrt.FloatData(outputs[0])
	if err != nil {
		return nil, err
	}
	shape, err := onnxrt.Shape(outputs[0])
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 {
		return nil, fmt.Errorf("detector: expected 3D anchor output, got shape %v", shape)
	}
	numRows := int(shape[1])
	rowLen := int(shape[2])
	return postprocess.DecodeAnchor(data, numRows, rowLen, opts)
}

func decodeTransformerOutputs(names []string, outputs []onnxruntime_go.Value, opts postprocess.Options) ([]postprocess.Detection, error) {
	if len(outputs) < 3 {
		return nil, fmt.Errorf("detector: transformer model must have 3 outputs (labels, boxes, scores), got %d", len(outputs))
	}

	labelsIdx, boxesIdx, scoresIdx, err := identifyTransformerOutputs(names, outputs)
	if err != nil {
		return nil, err
	}

	labelsData, err := onnxrt.FloatData(outputs[labelsIdx])
	if err != nil {
		return nil, err
	}
	boxesData, err := onnxrt.FloatData(outputs[boxesIdx])
	if err != nil {
		return nil, err
	}
	boxesShape, err := onnxrt.Shape(outputs[boxesIdx])
	if err != nil {
		return nil, err
	}
	scoresData, err := onnxrt.FloatData(outputs[scoresIdx])
	if err != nil {
		return nil, err
	}

	numBoxes := int(boxesShape[1])
	return postprocess.DecodeTransformer(labelsData, boxesData, scoresData, numBoxes, opts)
}

// identifyTransformerOutputs locates the labels[1,N], boxes[1,N,4], and
// scores[1,N] tensors among a transformer model's outputs. Output names
// are tried first (models commonly call them "labels"/"boxes"/"scores");
// the boxes tensor is always identifiable by rank (3D with last dim 4)
// even when names are uninformative, and the two remaining rank-2 outputs
// fall back to declaration order (labels, then scores) per §4.4.
func identifyTransformerOutputs(names []string, outputs []onnxruntime_go.Value) (labelsIdx, boxesIdx, scoresIdx int, err error) {
	labelsIdx, boxesIdx, scoresIdx = -1, -1, -1

	shapes := make([][]int64, len(outputs))
	for i, v := range outputs {
		s, shapeErr := onnxrt.Shape(v)
		if shapeErr != nil {
			return 0, 0, 0, shapeErr
		}
		shapes[i] = s
	}

	for i, s := range shapes {
		if len(s) == 3 && s[2] == 4 {
			boxesIdx = i
			break
		}
	}
	if boxesIdx == -1 {
		return 0, 0, 0, fmt.Errorf("detector: could not identify a boxes tensor among %d outputs", len(outputs))
	}

	for i, name := range names {
		if i == boxesIdx {
			continue
		}
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "label"):
			labelsIdx = i
		case strings.Contains(lower, "score") || strings.Contains(lower, "conf"):
			scoresIdx = i
		}
	}

	if labelsIdx == -1 || scoresIdx == -1 {
		remaining := make([]int, 0, 2)
		for i := range outputs {
			if i != boxesIdx && i != labelsIdx && i != scoresIdx {
				remaining = append(remaining, i)
			}
		}
		for _, i := range remaining {
			if labelsIdx == -1 {
				labelsIdx = i
			} else if scoresIdx == -1 {
				scoresIdx = i
			}
		}
	}

	if labelsIdx == -1 || scoresIdx == -1 {
		return 0, 0, 0, fmt.Errorf("detector: could not identify labels/scores tensors among %d outputs", len(outputs))
	}
	return labelsIdx, boxesIdx, scoresIdx, nil
}
