// Package classes loads the ordered class-id -> label table from the
// sidecar metadata file that ships alongside an ONNX model (spec §4.1).
package classes

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Table is the immutable, ordered list of class labels. Index is the class
// id emitted by the model.
type Table struct {
	labels []string
	// LetterboxFill is the open-question sidecar hint (§9/§13): the
	// neutral pad value the model was trained with, 0-255. Nil means the
	// sidecar did not declare it and the caller should fall back to the
	// family default (114 for anchor models, 0 for transformer models).
	LetterboxFill *int
}

// sidecarYAML is the optional YAML shape: an explicit index->label map plus
// the optional letterbox fill hint.
type sidecarYAML struct {
	Classes       map[int]string `yaml:"classes"`
	LetterboxFill *int           `yaml:"letterbox_fill"`
}

// Load reads the sidecar file at path. It supports two formats, selected by
// extension:
//   - ".yaml"/".yml": a mapping of class index to label, plus an optional
//     letterbox_fill hint (SPEC_FULL §11).
//   - anything else: one class label per line, in index order (spec §6).
//
// Load fails if the file is missing or empty, or (for the YAML form) if
// indices are non-contiguous starting at 0.
func Load(path string) (*Table, error) {
	if path == "" {
		return nil, fmt.Errorf("classes: sidecar path must not be empty")
	}
	data, err := os.ReadFile(path) //nolint:gosec // sidecar path is operator-supplied config, not request input
	if err != nil {
		return nil, fmt.Errorf("classes: reading sidecar file %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return loadYAML(data)
	}
	return loadLines(data)
}

func loadYAML(data []byte) (*Table, error) {
	var doc sidecarYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("classes: parsing YAML sidecar: %w", err)
	}
	if len(doc.Classes) == 0 {
		return nil, fmt.Errorf("classes: YAML sidecar declares no classes")
	}
	labels := make([]string, len(doc.Classes))
	for idx, label := range doc.Classes {
		if idx < 0 || idx >= len(labels) {
			return nil, fmt.Errorf("classes: index %d out of contiguous range [0,%d)", idx, len(labels))
		}
		labels[idx] = normalizeLabel(label)
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("classes: missing label for index %d", i)
		}
	}
	return &Table{labels: labels, LetterboxFill: doc.LetterboxFill}, nil
}

func loadLines(data []byte) (*Table, error) {
	var labels []string
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// Tolerate a "0: label" or "0 label" mapping form in addition to
		// plain lines, since some model zoos ship index-prefixed files.
		if idx, label, ok := splitIndexPrefix(line); ok {
			for len(labels) <= idx {
				labels = append(labels, "")
			}
			labels[idx] = normalizeLabel(label)
			continue
		}
		labels = append(labels, normalizeLabel(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("classes: scanning sidecar file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("classes: sidecar file declares no classes")
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("classes: missing label for index %d", i)
		}
	}
	return &Table{labels: labels}, nil
}

// splitIndexPrefix parses "<int>: label" or "<int> label"; ok is false if
// line does not start with an integer followed by a separator.
func splitIndexPrefix(line string) (int, string, bool) {
	for _, sep := range []string{":", " ", "\t"} {
		if i := strings.Index(line, sep); i > 0 {
			idxStr := strings.TrimSpace(line[:i])
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				continue
			}
			label := strings.TrimSpace(line[i+1:])
			if label == "" {
				continue
			}
			return idx, label, true
		}
	}
	return 0, "", false
}

func normalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Len returns the number of classes.
func (t *Table) Len() int { return len(t.labels) }

// Label returns the label for id, or ok=false if id is out of range.
func (t *Table) Label(id int) (string, bool) {
	if id < 0 || id >= len(t.labels) {
		return "", false
	}
	return t.labels[id], true
}

// Labels returns a copy of the full ordered label slice.
func (t *Table) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// ValidateCount fails if the table's class count does not match the
// model's output head size, per §4.1 ("Fails if... a class count
// mismatched with the model's output head").
func (t *Table) ValidateCount(modelClassCount int) error {
	if t.Len() != modelClassCount {
		return fmt.Errorf("classes: sidecar declares %d classes but model head has %d", t.Len(), modelClassCount)
	}
	return nil
}

// ResolveLetterboxFill applies the open-question precedence of §9/§13:
// sidecar declaration first, then the family default.
func (t *Table) ResolveLetterboxFill(isAnchorFamily bool) int {
	if t != nil && t.LetterboxFill != nil {
		return *t.LetterboxFill
	}
	if isAnchorFamily {
		return 114
	}
	return 0
}
