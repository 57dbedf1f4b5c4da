package build

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

//go:embed glue/*
var glueFS embed.FS

// glueFiles are copied into the model tree before every build. The C ABI
// they declare is frozen; changing a signature here breaks every caller
// linked against an older library.
var glueFiles = []string{
	"edge_impulse_c_api.cpp",
	"edge_impulse_wrapper.h",
	"CMakeLists.txt",
	"tflite_detection_postprocess_wrapper.cc",
}

// InjectGlue writes the embedded wrapper sources into the model
// directory, overwriting previous copies.
func InjectGlue(modelDir string) error {
	for _, name := range glueFiles {
		data, err := glueFS.ReadFile("glue/" + name)
		if err != nil {
			return fmt.Errorf("embedded glue file %s: %w", name, err)
		}
		dst := filepath.Join(modelDir, name)
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dst, err)
		}
		log.WithField("file", name).Debug("Injected glue file")
	}
	return nil
}
