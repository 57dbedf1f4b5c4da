package build

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Errors returned by model tree inspection.
const (
	ErrInvalidModelTree = buildError("model directory is missing required subdirectories")
	ErrNoTFLiteModel    = buildError("no tflite_learn_*.tflite file found in model tree")
	ErrMissingHeader    = buildError("tflite model file has no matching header")
)

// requiredSubdirs are the directories every deployment export contains.
var requiredSubdirs = []string{"edge-impulse-sdk", "model-parameters", "tflite-model"}

// ValidateModelDir checks that dir looks like an extracted deployment.
func ValidateModelDir(dir string) error {
	for _, sub := range requiredSubdirs {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%s/%s: %w", dir, sub, ErrInvalidModelTree)
		}
	}
	return nil
}

// MetadataHeaderPath returns the location of the model metadata header
// inside a model tree.
func MetadataHeaderPath(dir string) string {
	return filepath.Join(dir, "model-parameters", "model_metadata.h")
}

// CopyTree copies the required model subdirectories from src into dst.
// Used when the model is provided through a local path instead of a
// Studio download.
func CopyTree(src, dst string) error {
	if err := ValidateModelDir(src); err != nil {
		return err
	}
	for _, sub := range requiredSubdirs {
		if err := copyDir(filepath.Join(src, sub), filepath.Join(dst, sub)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", sub, err)
		}
	}
	log.WithFields(log.Fields{"from": src, "to": dst}).Info("Copied model tree")
	return nil
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Clean removes everything from the model directory except README.md and
// .gitignore, so the next build starts from a fresh download.
func Clean(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("dir", dir).Info("Model directory does not exist, nothing to clean")
			return nil
		}
		return fmt.Errorf("failed to read model directory: %w", err)
	}
	for _, e := range entries {
		if e.Name() == "README.md" || e.Name() == ".gitignore" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	log.WithField("dir", dir).Info("Model directory cleaned")
	return nil
}

// TFLitePair is one model binary with its generated header.
type TFLitePair struct {
	ModelPath  string
	HeaderPath string
	BaseName   string
}

// TFLiteFiles finds every tflite_learn_*.tflite in the model tree. Each
// binary must come with its generated header; a missing header aborts the
// build rather than producing an unlinkable library.
func TFLiteFiles(dir string) ([]TFLitePair, error) {
	modelDir := filepath.Join(dir, "tflite-model")
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tflite-model directory: %w", err)
	}

	var pairs []TFLitePair
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "tflite_learn_") || !strings.HasSuffix(name, ".tflite") {
			continue
		}
		base := strings.TrimSuffix(name, ".tflite")
		header := filepath.Join(modelDir, base+".h")
		if _, err := os.Stat(header); err != nil {
			return nil, fmt.Errorf("%s: %w", base+".h", ErrMissingHeader)
		}
		pairs = append(pairs, TFLitePair{
			ModelPath:  filepath.Join(modelDir, name),
			HeaderPath: header,
			BaseName:   base,
		})
	}
	if len(pairs) == 0 {
		return nil, ErrNoTFLiteModel
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].BaseName < pairs[j].BaseName })
	return pairs, nil
}
