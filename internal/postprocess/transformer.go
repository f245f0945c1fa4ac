package postprocess

import "fmt"

// DecodeTransformer decodes a transformer-style model's three pre-decoded
// output tensors (§4.4/§4.5): labelsData[i] is the class id for query i,
// boxesData holds [1,N,4] rows of (cx,cy,w,h) normalized to [0,1] of the
// model input canvas, and scoresData[i] is the confidence for query i. No
// NMS is applied: the model has already resolved one detection per query.
func DecodeTransformer(labelsData []float32, boxesData []float32, scoresData []float32, numBoxes int, opts Options) ([]Detection, error) {
	if len(labelsData) < numBoxes {
		return nil, fmt.Errorf("postprocess: labels data length %d too small for %d queries", len(labelsData), numBoxes)
	}
	if len(boxesData) < numBoxes*4 {
		return nil, fmt.Errorf("postprocess: boxes data length %d too small for %d boxes", len(boxesData), numBoxes)
	}
	if len(scoresData) < numBoxes {
		return nil, fmt.Errorf("postprocess: scores data length %d too small for %d queries", len(scoresData), numBoxes)
	}

	canvasW := float64(opts.Letterbox.TargetWidth)
	canvasH := float64(opts.Letterbox.TargetHeight)

	dets := make([]Detection, 0, numBoxes/4+1)
	for i := 0; i < numBoxes; i++ {
		confidence := float64(scoresData[i])
		if confidence < opts.Threshold {
			continue
		}

		classID := int(labelsData[i])
		label, ok := opts.Labels.Label(classID)
		if !ok || !opts.allowed(label) {
			continue
		}

		box := boxesData[i*4 : (i+1)*4]
		cx := float64(box[0]) * canvasW
		cy := float64(box[1]) * canvasH
		w := float64(box[2]) * canvasW
		h := float64(box[3]) * canvasH

		xMin := opts.Letterbox.InvertX(cx - w/2)
		yMin := opts.Letterbox.InvertY(cy - h/2)
		xMax := opts.Letterbox.InvertX(cx + w/2)
		yMax := opts.Letterbox.InvertY(cy + h/2)

		dets = append(dets, clampToFrame(Detection{
			Label:      label,
			Confidence: confidence,
			XMin:       xMin,
			YMin:       yMin,
			XMax:       xMax,
			YMax:       yMax,
		}, opts.Letterbox.OrigWidth, opts.Letterbox.OrigHeight))
	}

	return dets, nil
}
