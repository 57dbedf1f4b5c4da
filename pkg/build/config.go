// Package build turns a downloaded Edge Impulse model tree into a linkable
// static library: glue injection, header patching and the cmake/make
// invocation with a validated flag matrix.
package build

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

type buildError string

func (e buildError) Error() string { return string(e) }

// Errors returned by configuration validation.
const (
	ErrNoModelDir              = buildError("model directory is required")
	ErrUnknownPlatform         = buildError("unknown target platform")
	ErrUnknownEngine           = buildError("unknown inference engine")
	ErrUnknownAccelerator      = buildError("unknown accelerator backend")
	ErrConflictingAccelerators = buildError("accelerator backends are mutually exclusive")
	ErrAcceleratorNeedsFull    = buildError("accelerator backends require the full TensorFlow Lite engine")
	ErrFlexNeedsFull           = buildError("the TensorFlow Lite Flex library requires the full engine")
	ErrMemryxSoftwareNeedsHW   = buildError("MemryX software mode requires the memryx accelerator")
)

// Platform is a supported native build target.
type Platform string

// Supported platforms. The Jetson Orin, Renesas and TI targets share the
// linux-aarch64 prebuilt libraries.
const (
	PlatformMacARM64     Platform = "mac-arm64"
	PlatformMacX86       Platform = "mac-x86_64"
	PlatformLinuxX86     Platform = "linux-x86"
	PlatformLinuxAArch64 Platform = "linux-aarch64"
	PlatformLinuxARMv7   Platform = "linux-armv7"
	PlatformJetsonNano   Platform = "linux-jetson-nano"
)

// Engine selects the TensorFlow Lite runtime compiled into the library.
type Engine string

// Supported engines.
const (
	EngineTFLiteMicro Engine = "tflite-micro"
	EngineTFLiteFull  Engine = "tflite-full"
)

// Accelerator selects an optional hardware backend.
type Accelerator string

// Supported accelerator backends.
const (
	AccelNone   Accelerator = ""
	AccelTVM    Accelerator = "tvm"
	AccelONNX   Accelerator = "onnx"
	AccelQNN    Accelerator = "qnn"
	AccelEthos  Accelerator = "ethos"
	AccelAkida  Accelerator = "akida"
	AccelMemryx Accelerator = "memryx"
)

// DefaultTensorRTVersion is passed to Jetson builds when none is
// configured.
const DefaultTensorRTVersion = "8.5.2"

// Config describes one native build of the model library. Validate must
// pass before the configuration reaches cmake.
type Config struct {
	// ModelDir is the root of the model tree (edge-impulse-sdk/,
	// model-parameters/, tflite-model/).
	ModelDir string

	Platform    Platform
	Engine      Engine
	Accelerator Accelerator

	LinkTFLiteFlex bool
	MemryxSoftware bool

	TensorRTVersion string
	PythonCrossPath string

	ForceRebuild bool
	Jobs         int
}

// targetAliases maps presence-checked TARGET_* variables to platforms, in
// detection priority order.
var targetAliases = []struct {
	env      string
	platform Platform
}{
	{"TARGET_MAC_ARM64", PlatformMacARM64},
	{"TARGET_MAC_X86_64", PlatformMacX86},
	{"TARGET_LINUX_X86", PlatformLinuxX86},
	{"TARGET_LINUX_AARCH64", PlatformLinuxAArch64},
	{"TARGET_LINUX_ARMV7", PlatformLinuxARMv7},
	{"TARGET_JETSON_NANO", PlatformJetsonNano},
	{"TARGET_JETSON_ORIN", PlatformLinuxAArch64},
	{"TARGET_RENESAS_RZV2L", PlatformLinuxAArch64},
	{"TARGET_RENESAS_RZG2L", PlatformLinuxAArch64},
	{"TARGET_AM68PA", PlatformLinuxAArch64},
	{"TARGET_AM62A", PlatformLinuxAArch64},
	{"TARGET_AM68A", PlatformLinuxAArch64},
	{"TARGET_TDA4VM", PlatformLinuxAArch64},
}

// acceleratorEnvs maps presence-checked USE_* variables to backends.
var acceleratorEnvs = []struct {
	env   string
	accel Accelerator
}{
	{"USE_TVM", AccelTVM},
	{"USE_ONNX", AccelONNX},
	{"USE_QUALCOMM_QNN", AccelQNN},
	{"USE_ETHOS", AccelEthos},
	{"USE_AKIDA", AccelAkida},
	{"USE_MEMRYX", AccelMemryx},
}

// LoadConfig reads the build flag matrix from the environment. A variable
// counts as set when it has any non-empty value. The result is validated.
func LoadConfig(modelDir string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("TENSORRT_VERSION", DefaultTensorRTVersion)
	v.SetDefault("NUM_JOBS", 4)

	cfg := &Config{
		ModelDir:        modelDir,
		Platform:        detectPlatform(v),
		Engine:          EngineTFLiteMicro,
		LinkTFLiteFlex:  envSet(v, "LINK_TFLITE_FLEX_LIBRARY"),
		MemryxSoftware:  envSet(v, "EI_CLASSIFIER_USE_MEMRYX_SOFTWARE"),
		TensorRTVersion: v.GetString("TENSORRT_VERSION"),
		PythonCrossPath: v.GetString("PYTHON_CROSS_PATH"),
		ForceRebuild:    envSet(v, "FORCE_REBUILD"),
		Jobs:            v.GetInt("NUM_JOBS"),
	}
	if envSet(v, "USE_FULL_TFLITE") {
		cfg.Engine = EngineTFLiteFull
	}

	var accels []Accelerator
	for _, a := range acceleratorEnvs {
		if envSet(v, a.env) {
			accels = append(accels, a.accel)
		}
	}
	if len(accels) > 1 {
		return nil, fmt.Errorf("%s: %w",
			joinAccels(accels), ErrConflictingAccelerators)
	}
	if len(accels) == 1 {
		cfg.Accelerator = accels[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envSet(v *viper.Viper, key string) bool {
	return v.GetString(key) != ""
}

func joinAccels(accels []Accelerator) string {
	names := make([]string, len(accels))
	for i, a := range accels {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// detectPlatform resolves the TARGET_* matrix, falling back to the host.
func detectPlatform(v *viper.Viper) Platform {
	for _, t := range targetAliases {
		if envSet(v, t.env) {
			return t.platform
		}
	}
	return hostPlatform()
}

func hostPlatform() Platform {
	if runtime.GOOS == "darwin" {
		if runtime.GOARCH == "arm64" {
			return PlatformMacARM64
		}
		return PlatformMacX86
	}
	switch runtime.GOARCH {
	case "arm64":
		return PlatformLinuxAArch64
	case "arm":
		return PlatformLinuxARMv7
	default:
		return PlatformLinuxX86
	}
}

// Validate checks the flag matrix for combinations the native build
// cannot honor. It must be called before any process is spawned.
func (c *Config) Validate() error {
	if c.ModelDir == "" {
		return ErrNoModelDir
	}
	switch c.Platform {
	case PlatformMacARM64, PlatformMacX86, PlatformLinuxX86,
		PlatformLinuxAArch64, PlatformLinuxARMv7, PlatformJetsonNano:
	default:
		return fmt.Errorf("%q: %w", c.Platform, ErrUnknownPlatform)
	}
	switch c.Engine {
	case EngineTFLiteMicro, EngineTFLiteFull:
	default:
		return fmt.Errorf("%q: %w", c.Engine, ErrUnknownEngine)
	}
	switch c.Accelerator {
	case AccelNone, AccelTVM, AccelONNX, AccelQNN, AccelEthos, AccelAkida, AccelMemryx:
	default:
		return fmt.Errorf("%q: %w", c.Accelerator, ErrUnknownAccelerator)
	}
	if c.Accelerator != AccelNone && c.Engine != EngineTFLiteFull {
		return fmt.Errorf("%s: %w", c.Accelerator, ErrAcceleratorNeedsFull)
	}
	if c.LinkTFLiteFlex && c.Engine != EngineTFLiteFull {
		return ErrFlexNeedsFull
	}
	if c.MemryxSoftware && c.Accelerator != AccelMemryx {
		return ErrMemryxSoftwareNeedsHW
	}
	return nil
}

// CMakeArgs renders the configure defines for this configuration, in the
// order the native build expects them.
func (c *Config) CMakeArgs() []string {
	args := []string{
		"-DCMAKE_BUILD_TYPE=Release",
		"-DEIDSP_SIGNAL_C_FN_POINTER=1",
		"-DEI_C_LINKAGE=1",
		"-DBUILD_SHARED_LIBS=OFF",
	}
	if c.Engine == EngineTFLiteFull {
		args = append(args,
			"-DEI_CLASSIFIER_USE_FULL_TFLITE=1",
			fmt.Sprintf("-DTARGET_PLATFORM=%s", c.Platform))
	}
	switch c.Accelerator {
	case AccelTVM:
		args = append(args, "-DUSE_TVM=1")
	case AccelONNX:
		args = append(args, "-DUSE_ONNX=1")
	case AccelQNN:
		args = append(args, "-DUSE_QUALCOMM_QNN=1")
	case AccelEthos:
		args = append(args, "-DUSE_ETHOS=1")
	case AccelAkida:
		args = append(args, "-DUSE_AKIDA=1")
	case AccelMemryx:
		args = append(args, "-DUSE_MEMRYX=1")
	}
	if c.LinkTFLiteFlex {
		args = append(args, "-DLINK_TFLITE_FLEX_LIBRARY=1")
	}
	if c.MemryxSoftware {
		args = append(args, "-DEI_CLASSIFIER_USE_MEMRYX_SOFTWARE=1")
	}
	version := c.TensorRTVersion
	if version == "" {
		version = DefaultTensorRTVersion
	}
	args = append(args, fmt.Sprintf("-DTENSORRT_VERSION=%s", version))
	if c.PythonCrossPath != "" {
		args = append(args, fmt.Sprintf("-DPYTHON_CROSS_PATH=%s", c.PythonCrossPath))
	}
	return args
}
