// Package models implements the built-in object-detection model catalog
// backing the CLI's list-models and download subcommands (SPEC_FULL.md
// §12). No network calls happen anywhere in the request-processing core;
// downloading is plain CLI-surface scaffolding, grounded on the teacher's
// internal/models path-resolution conventions.
package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Family mirrors onnxrt.Family without importing it, so this package stays
// free of any ONNX Runtime dependency.
type Family string

const (
	FamilyAnchor      Family = "anchor"
	FamilyTransformer Family = "transformer"
)

// Entry describes one known downloadable model.
type Entry struct {
	Name         string
	Family       Family
	Filename     string
	ClassesFile  string
	DownloadURL  string
	SHA256       string
	Description  string
}

// Catalog is the built-in list of known models, analogous to the teacher's
// hardcoded PP-OCR model name constants but data-driven so new entries
// don't require code changes elsewhere.
var Catalog = []Entry{
	{
		Name:        "yolov5n",
		Family:      FamilyAnchor,
		Filename:    "yolov5n.onnx",
		ClassesFile: "coco-classes.txt",
		DownloadURL: "https://github.com/blue-onyx-go/models/releases/download/v1/yolov5n.onnx",
		SHA256:      "",
		Description: "YOLOv5-nano, 80-class COCO anchor-based detector, CPU-friendly",
	},
	{
		Name:        "rt-detr-r18",
		Family:      FamilyTransformer,
		Filename:    "rtdetr_r18.onnx",
		ClassesFile: "coco-classes.txt",
		DownloadURL: "https://github.com/blue-onyx-go/models/releases/download/v1/rtdetr_r18.onnx",
		SHA256:      "",
		Description: "RT-DETR R18, transformer-style detector with pre-decoded queries",
	},
}

// Find returns the catalog entry named name, or false if unknown.
func Find(name string) (Entry, bool) {
	for _, e := range Catalog {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Download fetches entry's model file into destDir, verifying its SHA256
// checksum when one is recorded in the catalog. It returns the path to the
// written file.
func Download(ctx context.Context, entry Entry, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil { //nolint:gosec // operator-chosen destination
		return "", fmt.Errorf("models: creating destination directory %s: %w", destDir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.DownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("models: building download request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("models: downloading %s: %w", entry.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("models: download of %s failed with status %s", entry.Name, resp.Status)
	}

	destPath := filepath.Join(destDir, entry.Filename)
	tmpPath := destPath + ".download"

	out, err := os.Create(tmpPath) //nolint:gosec // destPath is catalog-derived, not user input
	if err != nil {
		return "", fmt.Errorf("models: creating %s: %w", tmpPath, err)
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hasher), resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("models: writing %s: %w", tmpPath, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("models: closing %s: %w", tmpPath, err)
	}

	if entry.SHA256 != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if sum != entry.SHA256 {
			_ = os.Remove(tmpPath)
			return "", fmt.Errorf("models: checksum mismatch for %s: got %s, want %s", entry.Name, sum, entry.SHA256)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("models: finalizing %s: %w", destPath, err)
	}
	return destPath, nil
}
