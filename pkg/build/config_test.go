//go:build unit

package build

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		ModelDir: "/tmp/model",
		Platform: PlatformLinuxX86,
		Engine:   EngineTFLiteMicro,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid micro", func(c *Config) {}, nil},
		{"valid full with accelerator", func(c *Config) {
			c.Engine = EngineTFLiteFull
			c.Accelerator = AccelTVM
		}, nil},
		{"missing model dir", func(c *Config) { c.ModelDir = "" }, ErrNoModelDir},
		{"unknown platform", func(c *Config) { c.Platform = "win-x64" }, ErrUnknownPlatform},
		{"unknown engine", func(c *Config) { c.Engine = "tensorrt" }, ErrUnknownEngine},
		{"unknown accelerator", func(c *Config) {
			c.Engine = EngineTFLiteFull
			c.Accelerator = "npu"
		}, ErrUnknownAccelerator},
		{"accelerator without full engine", func(c *Config) {
			c.Accelerator = AccelONNX
		}, ErrAcceleratorNeedsFull},
		{"flex without full engine", func(c *Config) {
			c.LinkTFLiteFlex = true
		}, ErrFlexNeedsFull},
		{"memryx software without memryx", func(c *Config) {
			c.Engine = EngineTFLiteFull
			c.Accelerator = AccelAkida
			c.MemryxSoftware = true
		}, ErrMemryxSoftwareNeedsHW},
		{"memryx software with memryx", func(c *Config) {
			c.Engine = EngineTFLiteFull
			c.Accelerator = AccelMemryx
			c.MemryxSoftware = true
		}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate = %v, expected %v", err, tc.wantErr)
			}
		})
	}
}

func TestCMakeArgsMicro(t *testing.T) {
	cfg := validConfig()
	args := strings.Join(cfg.CMakeArgs(), " ")

	for _, want := range []string{
		"-DCMAKE_BUILD_TYPE=Release",
		"-DEIDSP_SIGNAL_C_FN_POINTER=1",
		"-DEI_C_LINKAGE=1",
		"-DBUILD_SHARED_LIBS=OFF",
		"-DTENSORRT_VERSION=8.5.2",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
	if strings.Contains(args, "FULL_TFLITE") {
		t.Errorf("micro build must not request full TFLite: %s", args)
	}
}

func TestCMakeArgsFull(t *testing.T) {
	cfg := validConfig()
	cfg.Engine = EngineTFLiteFull
	cfg.Platform = PlatformJetsonNano
	cfg.Accelerator = AccelQNN
	cfg.LinkTFLiteFlex = true
	cfg.TensorRTVersion = "10.0.1"
	cfg.PythonCrossPath = "/opt/python"

	args := strings.Join(cfg.CMakeArgs(), " ")
	for _, want := range []string{
		"-DEI_CLASSIFIER_USE_FULL_TFLITE=1",
		"-DTARGET_PLATFORM=linux-jetson-nano",
		"-DUSE_QUALCOMM_QNN=1",
		"-DLINK_TFLITE_FLEX_LIBRARY=1",
		"-DTENSORRT_VERSION=10.0.1",
		"-DPYTHON_CROSS_PATH=/opt/python",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("/tmp/model")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine != EngineTFLiteMicro {
		t.Errorf("engine = %v, expected micro default", cfg.Engine)
	}
	if cfg.Accelerator != AccelNone {
		t.Errorf("accelerator = %v, expected none", cfg.Accelerator)
	}
	if cfg.TensorRTVersion != DefaultTensorRTVersion {
		t.Errorf("tensorrt version = %q", cfg.TensorRTVersion)
	}
	if cfg.Jobs != 4 {
		t.Errorf("jobs = %d, expected 4", cfg.Jobs)
	}
}

func TestLoadConfigTargetMatrix(t *testing.T) {
	tests := []struct {
		env  string
		want Platform
	}{
		{"TARGET_MAC_ARM64", PlatformMacARM64},
		{"TARGET_JETSON_NANO", PlatformJetsonNano},
		{"TARGET_JETSON_ORIN", PlatformLinuxAArch64},
		{"TARGET_RENESAS_RZV2L", PlatformLinuxAArch64},
		{"TARGET_TDA4VM", PlatformLinuxAArch64},
	}
	for _, tc := range tests {
		t.Run(tc.env, func(t *testing.T) {
			t.Setenv(tc.env, "1")
			cfg, err := LoadConfig("/tmp/model")
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.Platform != tc.want {
				t.Errorf("platform = %v, expected %v", cfg.Platform, tc.want)
			}
		})
	}
}

func TestLoadConfigFullTFLiteAndAccelerator(t *testing.T) {
	t.Setenv("USE_FULL_TFLITE", "1")
	t.Setenv("USE_TVM", "1")
	cfg, err := LoadConfig("/tmp/model")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine != EngineTFLiteFull {
		t.Errorf("engine = %v, expected full", cfg.Engine)
	}
	if cfg.Accelerator != AccelTVM {
		t.Errorf("accelerator = %v, expected tvm", cfg.Accelerator)
	}
}

func TestLoadConfigConflictingAccelerators(t *testing.T) {
	t.Setenv("USE_FULL_TFLITE", "1")
	t.Setenv("USE_TVM", "1")
	t.Setenv("USE_ONNX", "1")
	if _, err := LoadConfig("/tmp/model"); !errors.Is(err, ErrConflictingAccelerators) {
		t.Errorf("expected ErrConflictingAccelerators, got %v", err)
	}
}

func TestLoadConfigAcceleratorWithoutFullEngine(t *testing.T) {
	t.Setenv("USE_AKIDA", "1")
	if _, err := LoadConfig("/tmp/model"); !errors.Is(err, ErrAcceleratorNeedsFull) {
		t.Errorf("expected ErrAcceleratorNeedsFull, got %v", err)
	}
}
