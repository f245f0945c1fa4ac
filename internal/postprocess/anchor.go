package postprocess

import "fmt"

// DecodeAnchor decodes a dense anchor-grid output tensor (§4.5): a single
// tensor of shape [1, N, 5+numClasses] where each row is
// [cx, cy, w, h, objectness, class0, class1, ...] in model-input pixel
// space (cx/cy/w/h already decoded from anchors by the exporter, as is
// standard for Ultralytics-style ONNX exports). Confidence is
// objectness * max(class scores); class is the argmax. Boxes below the
// effective threshold are dropped before NMS runs, which is applied
// per-class at opts.IoUThreshold.
func DecodeAnchor(data []float32, numRows, rowLen int, opts Options) ([]Detection, error) {
	numClasses := rowLen - 5
	if numClasses <= 0 {
		return nil, fmt.Errorf("postprocess: anchor row length %d too small for 5+classes", rowLen)
	}
	if len(data) < numRows*rowLen {
		return nil, fmt.Errorf("postprocess: anchor data length %d too small for %d rows of %d",
			len(data), numRows, rowLen)
	}

	dets := make([]Detection, 0, numRows/8+1)
	for i := 0; i < numRows; i++ {
		row := data[i*rowLen : (i+1)*rowLen]
		cx, cy, w, h, obj := row[0], row[1], row[2], row[3], row[4]

		bestClass := 0
		bestScore := row[5]
		for c := 1; c < numClasses; c++ {
			if s := row[5+c]; s > bestScore {
				bestScore = s
				bestClass = c
			}
		}

		confidence := float64(obj) * float64(bestScore)
		if confidence < opts.Threshold {
			continue
		}

		label, ok := opts.Labels.Label(bestClass)
		if !ok || !opts.allowed(label) {
			continue
		}

		xMin := opts.Letterbox.InvertX(float64(cx - w/2))
		yMin := opts.Letterbox.InvertY(float64(cy - h/2))
		xMax := opts.Letterbox.InvertX(float64(cx + w/2))
		yMax := opts.Letterbox.InvertY(float64(cy + h/2))

		dets = append(dets, clampToFrame(Detection{
			Label:      label,
			Confidence: confidence,
			XMin:       xMin,
			YMin:       yMin,
			XMax:       xMax,
			YMax:       yMax,
		}, opts.Letterbox.OrigWidth, opts.Letterbox.OrigHeight))
	}

	threshold := opts.IoUThreshold
	if threshold <= 0 {
		threshold = 0.45
	}
	return nmsPerClass(dets, threshold), nil
}
