package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindKnownEntry(t *testing.T) {
	entry, ok := Find("yolov5n")
	require.True(t, ok)
	assert.Equal(t, FamilyAnchor, entry.Family)
}

func TestFindUnknownEntry(t *testing.T) {
	_, ok := Find("does-not-exist")
	assert.False(t, ok)
}

func TestDownloadWritesFileAndVerifiesChecksum(t *testing.T) {
	content := []byte("fake-onnx-model-bytes")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer ts.Close()

	sum := sha256Hex(content)
	entry := Entry{Name: "test-model", Filename: "test.onnx", DownloadURL: ts.URL, SHA256: sum}

	dir := t.TempDir()
	path, err := Download(context.Background(), entry, dir)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownloadRejectsChecksumMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("unexpected-content"))
	}))
	defer ts.Close()

	entry := Entry{Name: "test-model", Filename: "test.onnx", DownloadURL: ts.URL, SHA256: "deadbeef"}
	dir := t.TempDir()

	_, err := Download(context.Background(), entry, dir)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "test.onnx"))
	assert.True(t, os.IsNotExist(statErr))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
