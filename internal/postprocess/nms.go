package postprocess

import "sort"

// nonMaxSuppression runs standard greedy NMS within a single class,
// suppressing lower-confidence boxes that overlap a kept box by more than
// iouThreshold. Mirrors the teacher's region-NMS shape, generalized from
// DetectedRegion.Box to Detection's own xyxy fields.
func nonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) <= 1 {
		return dets
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return dets[order[i]].Confidence > dets[order[j]].Confidence
	})

	suppressed := make([]bool, len(dets))
	kept := make([]Detection, 0, len(dets))
	for _, a := range order {
		if suppressed[a] {
			continue
		}
		kept = append(kept, dets[a])
		for _, b := range order {
			if b == a || suppressed[b] {
				continue
			}
			if iou(dets[a], dets[b]) > iouThreshold {
				suppressed[b] = true
			}
		}
	}
	return kept
}

// nmsPerClass groups dets by label and NMS-suppresses within each group
// independently, so boxes for different classes never suppress each other.
func nmsPerClass(dets []Detection, iouThreshold float64) []Detection {
	byLabel := make(map[string][]Detection)
	for _, d := range dets {
		byLabel[d.Label] = append(byLabel[d.Label], d)
	}

	out := make([]Detection, 0, len(dets))
	for _, group := range byLabel {
		out = append(out, nonMaxSuppression(group, iouThreshold)...)
	}
	return out
}

func iou(a, b Detection) float64 {
	left := maxFloat(a.XMin, b.XMin)
	top := maxFloat(a.YMin, b.YMin)
	right := minFloat(a.XMax, b.XMax)
	bottom := minFloat(a.YMax, b.YMax)

	if left >= right || top >= bottom {
		return 0
	}
	inter := (right - left) * (bottom - top)
	areaA := (a.XMax - a.XMin) * (a.YMax - a.YMin)
	areaB := (b.XMax - b.XMin) * (b.YMax - b.YMin)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
