package classes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLines(t *testing.T) {
	path := writeTemp(t, "classes.txt", "person\ncar\ntruck\n")
	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	label, ok := tbl.Label(1)
	assert.True(t, ok)
	assert.Equal(t, "car", label)
}

func TestLoadLinesIgnoresBlank(t *testing.T) {
	path := writeTemp(t, "classes.txt", "person\n\ncar\n\n")
	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestLoadLinesIndexPrefixed(t *testing.T) {
	path := writeTemp(t, "classes.txt", "0: person\n1: car\n2: truck\n")
	tbl, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	label, ok := tbl.Label(2)
	assert.True(t, ok)
	assert.Equal(t, "truck", label)
}

func TestLoadEmptyFails(t *testing.T) {
	path := writeTemp(t, "classes.txt", "\n\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestLoadEmptyPathFails(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "classes.yaml", "classes:\n  0: person\n  1: car\nletterbox_fill: 127\n")
	tbl, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	require.NotNil(t, tbl.LetterboxFill)
	assert.Equal(t, 127, *tbl.LetterboxFill)
}

func TestLoadYAMLNonContiguousFails(t *testing.T) {
	path := writeTemp(t, "classes.yaml", "classes:\n  0: person\n  5: car\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadYAMLEmptyFails(t *testing.T) {
	path := writeTemp(t, "classes.yaml", "classes: {}\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateCount(t *testing.T) {
	path := writeTemp(t, "classes.txt", "a\nb\nc\n")
	tbl, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, tbl.ValidateCount(3))
	assert.Error(t, tbl.ValidateCount(4))
}

func TestResolveLetterboxFill(t *testing.T) {
	path := writeTemp(t, "classes.txt", "a\nb\n")
	tbl, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 114, tbl.ResolveLetterboxFill(true))
	assert.Equal(t, 0, tbl.ResolveLetterboxFill(false))

	withHint, err := Load(writeTemp(t, "withfill.yaml", "classes:\n  0: a\n  1: b\nletterbox_fill: 42\n"))
	require.NoError(t, err)
	assert.Equal(t, 42, withHint.ResolveLetterboxFill(false))
	assert.Equal(t, 42, withHint.ResolveLetterboxFill(true))
}

func TestLabelOutOfRange(t *testing.T) {
	path := writeTemp(t, "classes.txt", "a\nb\n")
	tbl, err := Load(path)
	require.NoError(t, err)
	_, ok := tbl.Label(5)
	assert.False(t, ok)
	_, ok = tbl.Label(-1)
	assert.False(t, ok)
}
