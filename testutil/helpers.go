// Package testutil provides shared helpers for constructing fake model
// trees and metadata headers in tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DefaultMetadataHeader is a minimal image-model metadata header.
const DefaultMetadataHeader = `#define EI_CLASSIFIER_PROJECT_ID 1
#define EI_CLASSIFIER_PROJECT_NAME "test-project"
#define EI_CLASSIFIER_PROJECT_OWNER "tester"
#define EI_CLASSIFIER_PROJECT_DEPLOY_VERSION 1
#define EI_CLASSIFIER_INPUT_WIDTH 96
#define EI_CLASSIFIER_INPUT_HEIGHT 96
#define EI_CLASSIFIER_INPUT_FRAMES 1
#define EI_CLASSIFIER_LABEL_COUNT 2
#define EI_CLASSIFIER_SENSOR 3
#define EI_CLASSIFIER_INTERVAL_MS 1
#define EI_CLASSIFIER_FREQUENCY 0
#define EI_CLASSIFIER_RAW_SAMPLE_COUNT 9216
#define EI_CLASSIFIER_RAW_SAMPLES_PER_FRAME 1
#define EI_CLASSIFIER_HAS_ANOMALY 0
#define EI_CLASSIFIER_OBJECT_DETECTION 0
#define EI_CLASSIFIER_HAS_VISUAL_ANOMALY 0
#define EI_CLASSIFIER_SLICES_PER_MODEL_WINDOW 1
`

// SkipIfNoModel skips the test unless a built model tree is available.
func SkipIfNoModel(t *testing.T) string {
	t.Helper()

	paths := []string{"model", "../model", "testdata/model"}
	for _, path := range paths {
		if _, err := os.Stat(filepath.Join(path, "model-parameters", "model_metadata.h")); err == nil {
			return path
		}
	}
	t.Skip("No model tree available")
	return ""
}

// TempFile creates a temporary file with the given content.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

// WriteModelTree creates a fake extracted deployment under dir with the
// required subdirectories, the given metadata header, and one staged
// tflite_learn_1 model with its generated header.
func WriteModelTree(t *testing.T, dir, metadataHeader string) {
	t.Helper()

	if metadataHeader == "" {
		metadataHeader = DefaultMetadataHeader
	}
	for _, sub := range []string{"edge-impulse-sdk", "model-parameters", "tflite-model"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", sub, err)
		}
	}
	writeFile(t, filepath.Join(dir, "model-parameters", "model_metadata.h"), metadataHeader)
	writeFile(t, filepath.Join(dir, "tflite-model", "tflite_learn_1.tflite"), "\x00fake-model")
	writeFile(t, filepath.Join(dir, "tflite-model", "tflite_learn_1.h"),
		"INCBIN(incbin_tflite_learn_1, \"tflite-model/tflite_learn_1.tflite\");\n")
	writeFile(t, filepath.Join(dir, "edge-impulse-sdk", "README.md"), "sdk stub\n")
}

// WriteMetadataHeader builds a metadata header from name/value pairs.
// Values are written verbatim, so strings need their own quotes.
func WriteMetadataHeader(t *testing.T, dir string, defines map[string]string) string {
	t.Helper()

	var b strings.Builder
	for name, value := range defines {
		fmt.Fprintf(&b, "#define %s %s\n", name, value)
	}
	path := filepath.Join(dir, "model_metadata.h")
	writeFile(t, path, b.String())
	return path
}

// MakeTestImage creates a deterministic RGB pixel buffer.
func MakeTestImage(width, height, channels int) []byte {
	data := make([]byte, width*height*channels)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}

// MakeFeatures creates a deterministic feature vector.
func MakeFeatures(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i%100) / 100
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
