package postprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blue-onyx-go/blueonyx/internal/classes"
	"github.com/blue-onyx-go/blueonyx/internal/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLabels(t *testing.T, names ...string) *classes.Table {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.txt")
	content := ""
	for _, n := range names {
		content += n + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	tbl, err := classes.Load(path)
	require.NoError(t, err)
	return tbl
}

func identityLetterbox(w, h int) preprocess.Letterbox {
	return preprocess.Letterbox{
		Scale: 1, PadLeft: 0, PadTop: 0,
		OrigWidth: w, OrigHeight: h,
		TargetWidth: w, TargetHeight: h,
	}
}

func TestDecodeAnchorFiltersByThreshold(t *testing.T) {
	labels := testLabels(t, "person", "car")
	opts := Options{
		Threshold: 0.5,
		Labels:    labels,
		Letterbox: identityLetterbox(100, 100),
	}
	// row: cx, cy, w, h, obj, class0, class1
	row1 := []float32{50, 50, 20, 20, 0.9, 0.9, 0.1} // person, conf 0.81
	row2 := []float32{20, 20, 10, 10, 0.2, 0.1, 0.9} // car, conf 0.18 (below threshold)
	data := append(append([]float32{}, row1...), row2...)

	dets, err := DecodeAnchor(data, 2, 7, opts)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "person", dets[0].Label)
	assert.InDelta(t, 40, dets[0].XMin, 0.01)
	assert.InDelta(t, 60, dets[0].XMax, 0.01)
}

func TestDecodeAnchorAppliesNMS(t *testing.T) {
	labels := testLabels(t, "person")
	opts := Options{
		Threshold:    0.1,
		Labels:       labels,
		Letterbox:    identityLetterbox(100, 100),
		IoUThreshold: 0.45,
	}
	rowA := []float32{50, 50, 20, 20, 0.9, 0.9}
	rowB := []float32{51, 51, 20, 20, 0.8, 0.8} // heavily overlapping, lower conf
	data := append(append([]float32{}, rowA...), rowB...)

	dets, err := DecodeAnchor(data, 2, 6, opts)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.InDelta(t, 0.9*0.9, dets[0].Confidence, 0.001)
}

func TestDecodeAnchorObjectFilter(t *testing.T) {
	labels := testLabels(t, "person", "car")
	opts := Options{
		Threshold: 0.1,
		Labels:    labels,
		Letterbox: identityLetterbox(100, 100),
		Allow:     []string{"car"},
	}
	row := []float32{50, 50, 20, 20, 0.9, 0.9, 0.1} // best class person
	dets, err := DecodeAnchor(row, 1, 7, opts)
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestDecodeAnchorRejectsShortData(t *testing.T) {
	labels := testLabels(t, "a")
	opts := Options{Labels: labels, Letterbox: identityLetterbox(10, 10)}
	_, err := DecodeAnchor([]float32{1, 2, 3}, 1, 6, opts)
	assert.Error(t, err)
}

func TestDecodeTransformerNoNMS(t *testing.T) {
	labels := testLabels(t, "person", "car")
	opts := Options{
		Threshold: 0.1,
		Labels:    labels,
		Letterbox: identityLetterbox(100, 100),
	}
	classIDs := []float32{0}
	boxes := []float32{0.5, 0.5, 0.2, 0.2}
	scores := []float32{0.95}

	dets, err := DecodeTransformer(classIDs, boxes, scores, 1, opts)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "person", dets[0].Label)
}

func TestDecodeTransformerFiltersByThreshold(t *testing.T) {
	labels := testLabels(t, "person", "car")
	opts := Options{
		Threshold: 0.5,
		Labels:    labels,
		Letterbox: identityLetterbox(100, 100),
	}
	classIDs := []float32{0, 1}
	boxes := []float32{0.5, 0.5, 0.2, 0.2, 0.2, 0.2, 0.1, 0.1}
	scores := []float32{0.95, 0.2}

	dets, err := DecodeTransformer(classIDs, boxes, scores, 2, opts)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "person", dets[0].Label)
}

func TestIoU(t *testing.T) {
	a := Detection{XMin: 0, YMin: 0, XMax: 10, YMax: 10}
	b := Detection{XMin: 5, YMin: 5, XMax: 15, YMax: 15}
	assert.InDelta(t, 25.0/175.0, iou(a, b), 0.001)

	c := Detection{XMin: 100, YMin: 100, XMax: 110, YMax: 110}
	assert.Equal(t, 0.0, iou(a, c))
}
