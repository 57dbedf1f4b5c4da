package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Errors returned by the native build.
const (
	ErrCMakeFailed = buildError("cmake configuration failed")
	ErrMakeFailed  = buildError("make build failed")
)

// libName is the static library the CMake project produces.
const libName = "libedge-impulse-sdk.a"

// fullTFLiteLibs are the prebuilt static libraries a full-TFLite build
// links against, in the order the official Makefile lists them.
var fullTFLiteLibs = []string{
	"tensorflow-lite", "cpuinfo", "farmhash", "fft2d_fftsg", "fft2d_fftsg2d",
	"ruy", "XNNPACK", "pthreadpool", "flatbuffers", "dl",
}

// Artifacts describes the output of a successful build for consumers
// that assemble linker flags.
type Artifacts struct {
	// LibPath is the absolute path of the built static library.
	LibPath string

	// IncludeDirs are the header search paths for the model tree.
	IncludeDirs []string

	// LinkLibs are the additional library names to link, in order.
	LinkLibs []string
}

// Builder runs the native cmake/make build of a prepared model tree.
type Builder struct {
	cfg *Config
}

// NewBuilder validates the configuration and creates a builder.
func NewBuilder(cfg *Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// Prepare injects the glue sources, applies the header patches and
// stages the model binaries into the build directory. It must run before
// Build.
func (b *Builder) Prepare() error {
	dir := b.cfg.ModelDir
	if err := ValidateModelDir(dir); err != nil {
		return err
	}
	if err := InjectGlue(dir); err != nil {
		return err
	}
	if err := PatchVisualAnomaly(dir); err != nil {
		return err
	}
	if err := PatchFullTFLite(dir, b.cfg.Engine); err != nil {
		return err
	}
	return b.stageModelFiles()
}

// stageModelFiles copies every model binary and its header into
// build/tflite-model and rewrites the INCBIN references to absolute
// paths. The fixed headers are copied back so the C++ compilation sees
// the same paths.
func (b *Builder) stageModelFiles() error {
	pairs, err := TFLiteFiles(b.cfg.ModelDir)
	if err != nil {
		return err
	}

	stageDir := filepath.Join(b.buildDir(), "tflite-model")
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	for _, p := range pairs {
		stagedModel := filepath.Join(stageDir, p.BaseName+".tflite")
		stagedHeader := filepath.Join(stageDir, p.BaseName+".h")
		if err := copyFile(p.ModelPath, stagedModel); err != nil {
			return fmt.Errorf("failed to stage %s: %w", p.BaseName, err)
		}
		if err := copyFile(p.HeaderPath, stagedHeader); err != nil {
			return fmt.Errorf("failed to stage %s header: %w", p.BaseName, err)
		}

		absModel, err := filepath.Abs(stagedModel)
		if err != nil {
			return fmt.Errorf("failed to resolve staged model path: %w", err)
		}
		if err := PatchINCBINPath(stagedHeader, p.BaseName, absModel); err != nil {
			return err
		}
		// The original header gets the fixed path too.
		if err := copyFile(stagedHeader, p.HeaderPath); err != nil {
			return fmt.Errorf("failed to update %s header: %w", p.BaseName, err)
		}
		log.WithField("model", p.BaseName).Info("Staged model binary")
	}

	// A staged model invalidates any previously built library.
	libPath := filepath.Join(b.buildDir(), libName)
	if _, err := os.Stat(libPath); err == nil {
		if err := os.Remove(libPath); err != nil {
			return fmt.Errorf("failed to remove stale library: %w", err)
		}
		log.Info("Removed stale static library to force rebuild")
	}
	return nil
}

func (b *Builder) buildDir() string {
	return filepath.Join(b.cfg.ModelDir, "build")
}

// Build configures and compiles the static library, returning the
// artifacts on success. An existing library is reused unless the
// configuration forces a rebuild.
func (b *Builder) Build(ctx context.Context) (*Artifacts, error) {
	buildDir := b.buildDir()
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}

	libPath := filepath.Join(buildDir, libName)
	_, statErr := os.Stat(libPath)
	if statErr == nil && !b.cfg.ForceRebuild {
		log.Info("Library already exists, skipping build")
		return b.artifacts(libPath)
	}

	args := append([]string{".."}, b.cfg.CMakeArgs()...)
	log.WithField("args", args).Info("Configuring native build")
	if err := b.runCommand(ctx, buildDir, "cmake", args...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCMakeFailed, err)
	}

	jobs := b.cfg.Jobs
	if jobs < 1 {
		jobs = 4
	}
	log.WithField("jobs", jobs).Info("Compiling model library")
	if err := b.runCommand(ctx, buildDir, "make", "-j", strconv.Itoa(jobs)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMakeFailed, err)
	}

	return b.artifacts(libPath)
}

func (b *Builder) runCommand(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (b *Builder) artifacts(libPath string) (*Artifacts, error) {
	absLib, err := filepath.Abs(libPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library path: %w", err)
	}
	absModel, err := filepath.Abs(b.cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model path: %w", err)
	}

	a := &Artifacts{
		LibPath: absLib,
		IncludeDirs: []string{
			absModel,
			filepath.Join(absModel, "edge-impulse-sdk"),
		},
		LinkLibs: []string{"edge-impulse-sdk"},
	}
	if b.cfg.Engine == EngineTFLiteFull {
		a.IncludeDirs = append(a.IncludeDirs,
			filepath.Join(absModel, "tflite", string(b.cfg.Platform)))
		a.LinkLibs = append(a.LinkLibs, fullTFLiteLibs...)
	}
	return a, nil
}
