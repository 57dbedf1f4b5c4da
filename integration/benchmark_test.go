//go:build benchmark

package integration

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/features"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/impulse"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
	"github.com/emergingrobotics/go-edgeimpulse/pkg/runner"
	"github.com/emergingrobotics/go-edgeimpulse/testutil"
)

func benchModel(b *testing.B) *runner.Model {
	b.Helper()

	meta, err := metadata.Parse([]byte(testutil.DefaultMetadataHeader))
	if err != nil {
		b.Fatal(err)
	}
	engine := impulse.NewSimEngine()
	engine.Output.Classifications = []impulse.Classification{
		{Label: "a", Value: 0.7},
		{Label: "b", Value: 0.3},
	}
	handle, _ := impulse.NewHandle(engine)
	model, err := runner.NewModel(handle, meta)
	if err != nil {
		b.Fatal(err)
	}
	return model
}

// BenchmarkInferenceLatency measures per-call overhead of the binding
// layer over a constant-time engine.
func BenchmarkInferenceLatency(b *testing.B) {
	model := benchModel(b)
	input := testutil.MakeFeatures(model.InputSize())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := model.Infer(input); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkThroughput reports inferences per second.
func BenchmarkThroughput(b *testing.B) {
	model := benchModel(b)
	input := testutil.MakeFeatures(model.InputSize())

	start := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		model.Infer(input)
	}
	elapsed := time.Since(start)
	b.ReportMetric(float64(b.N)/elapsed.Seconds(), "inferences/s")
}

// BenchmarkPackRGB measures pixel packing throughput.
func BenchmarkPackRGB(b *testing.B) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 320))
	b.SetBytes(int64(len(img.Pix)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = features.PackRGB(img)
	}
}

// BenchmarkFitImage measures the squash resize path.
func BenchmarkFitImage(b *testing.B) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			src.SetRGBA(x, y, color.RGBA{R: byte(x), G: byte(y), B: 128, A: 255})
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = features.FitImage(src, 96, 96, metadata.ResizeSquash)
	}
}

// BenchmarkResample measures audio resampling throughput.
func BenchmarkResample(b *testing.B) {
	in := testutil.MakeFeatures(44100)
	b.SetBytes(int64(len(in) * 4))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = features.Resample(in, 44100, 16000)
	}
}

// BenchmarkMetadataParse measures header parsing.
func BenchmarkMetadataParse(b *testing.B) {
	header := []byte(testutil.DefaultMetadataHeader)
	b.SetBytes(int64(len(header)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := metadata.Parse(header); err != nil {
			b.Fatal(err)
		}
	}
}
