//go:build unit

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFeatures(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFeatures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []float32
	}{
		{"commas", "1, 2.5, -3", []float32{1, 2.5, -3}},
		{"whitespace", "0.25\n0.5\t0.75", []float32{0.25, 0.5, 0.75}},
		{"trailing comma", "4,5,", []float32{4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadFeatures(writeFeatures(t, tt.content))
			if err != nil {
				t.Fatalf("loadFeatures failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("feature %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadFeaturesErrors(t *testing.T) {
	if _, err := loadFeatures(writeFeatures(t, "1, nope, 3")); err == nil {
		t.Error("bad value: expected error")
	}
	if _, err := loadFeatures(writeFeatures(t, "  \n ")); err == nil {
		t.Error("empty file: expected error")
	}
	if _, err := loadFeatures(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("missing file: expected error")
	}
}
