package build

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var visualAnomalyRe = regexp.MustCompile(`#define EI_CLASSIFIER_HAS_VISUAL_ANOMALY\s+\d+`)

// PatchVisualAnomaly forces the visual anomaly fields into the result
// struct. The wrapper header defines the same macro, so a model without a
// visual anomaly block would otherwise produce a mismatched struct layout.
func PatchVisualAnomaly(modelDir string) error {
	header := MetadataHeaderPath(modelDir)
	content, err := os.ReadFile(header)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read metadata header: %w", err)
	}

	patched := visualAnomalyRe.ReplaceAll(content,
		[]byte("#define EI_CLASSIFIER_HAS_VISUAL_ANOMALY 1"))
	if string(patched) == string(content) {
		return nil
	}
	if err := os.WriteFile(header, patched, 0o644); err != nil {
		return fmt.Errorf("failed to patch metadata header: %w", err)
	}
	log.Info("Patched model_metadata.h to enable visual anomaly detection")
	return nil
}

var classifierIncludeRe = regexp.MustCompile(
	`(?s)(#if \(EI_CLASSIFIER_INFERENCING_ENGINE == EI_CLASSIFIER_TFLITE\) && \(EI_CLASSIFIER_COMPILED != 1\))(.+?)#elif EI_CLASSIFIER_COMPILED == 1`)

const classifierIncludeReplacement = `$1
#if defined(EI_CLASSIFIER_USE_FULL_TFLITE)
#include "edge-impulse-sdk/classifier/inferencing_engines/tflite_full.h"
#else
#include "edge-impulse-sdk/classifier/inferencing_engines/tflite_micro.h"
#endif
#elif EI_CLASSIFIER_COMPILED == 1`

var cmakeSourceBlockRe = regexp.MustCompile(regexp.QuoteMeta(
	`# Find all model and SDK source files
RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "tflite-model" "*.cpp")
RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "model-parameters" "*.cpp")
RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "edge-impulse-sdk" "*.cpp")
RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "edge-impulse-sdk/third_party" "*.cpp")`))

const cmakeSourceBlockReplacement = `# Find all model and SDK source files
RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "tflite-model" "*.cpp")
RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "model-parameters" "*.cpp")

# Conditionally include Edge Impulse SDK source files
if(EI_CLASSIFIER_USE_FULL_TFLITE)
    RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "edge-impulse-sdk" "*.cpp")
    list(FILTER MODEL_SOURCE EXCLUDE REGEX ".*tensorflow/lite/micro.*")
    list(FILTER MODEL_SOURCE EXCLUDE REGEX ".*micro_interpreter.*")
    list(FILTER MODEL_SOURCE EXCLUDE REGEX ".*all_ops_resolver.*")
else()
    RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "edge-impulse-sdk" "*.cpp")
endif()

RECURSIVE_FIND_FILE_APPEND(MODEL_SOURCE "edge-impulse-sdk/third_party" "*.cpp")`

// PatchFullTFLite rewires the classifier header and the CMake source list
// so a full-TFLite build pulls in tflite_full.h and drops the micro
// interpreter sources. No-op for the micro engine.
func PatchFullTFLite(modelDir string, engine Engine) error {
	if engine != EngineTFLiteFull {
		return nil
	}

	classifierHeader := filepath.Join(modelDir,
		"edge-impulse-sdk", "classifier", "ei_run_classifier.h")
	if content, err := os.ReadFile(classifierHeader); err == nil {
		patched := classifierIncludeRe.ReplaceAll(content, []byte(classifierIncludeReplacement))
		if err := os.WriteFile(classifierHeader, patched, 0o644); err != nil {
			return fmt.Errorf("failed to patch ei_run_classifier.h: %w", err)
		}
		log.Info("Patched ei_run_classifier.h for full TFLite")
	}

	cmakeLists := filepath.Join(modelDir, "CMakeLists.txt")
	if content, err := os.ReadFile(cmakeLists); err == nil {
		patched := cmakeSourceBlockRe.ReplaceAll(content, []byte(cmakeSourceBlockReplacement))
		if err := os.WriteFile(cmakeLists, patched, 0o644); err != nil {
			return fmt.Errorf("failed to patch CMakeLists.txt: %w", err)
		}
		log.Info("Patched CMakeLists.txt for full TFLite")
	}
	return nil
}

// PatchINCBINPath rewrites the INCBIN macro in a copied model header to
// reference the staged .tflite file by absolute path, so the build works
// from any working directory.
func PatchINCBINPath(headerPath, baseName, absModelPath string) error {
	content, err := os.ReadFile(headerPath)
	if err != nil {
		return fmt.Errorf("failed to read model header: %w", err)
	}

	old := fmt.Sprintf(`INCBIN(incbin_%s, "tflite-model/%s.tflite");`, baseName, baseName)
	replacement := fmt.Sprintf(`INCBIN(incbin_%s, "%s");`, baseName, absModelPath)
	patched := strings.Replace(string(content), old, replacement, 1)
	if patched == string(content) {
		log.WithField("header", headerPath).Warn("INCBIN pattern not found, header left unchanged")
		return nil
	}
	if err := os.WriteFile(headerPath, []byte(patched), 0o644); err != nil {
		return fmt.Errorf("failed to patch model header: %w", err)
	}
	return nil
}
