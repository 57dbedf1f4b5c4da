//go:build unit

package features

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
)

// solidImage creates a uniformly colored source image.
func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPackRGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 0xAA, G: 0xBB, B: 0xCC, A: 0xFF})
	img.SetRGBA(1, 0, color.RGBA{R: 0x01, G: 0x02, B: 0x03, A: 0xFF})

	got := PackRGB(img)
	want := []float32{float32(0xAABBCC), float32(0x010203)}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("PackRGB = %v, want %v", got, want)
	}
}

func TestFitImageSquash(t *testing.T) {
	src := solidImage(64, 32, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	dst := FitImage(src, 16, 16, metadata.ResizeSquash)

	if got := dst.Bounds(); got.Dx() != 16 || got.Dy() != 16 {
		t.Fatalf("output bounds = %v", got)
	}
	// Squash fills the whole canvas, so corners carry source color.
	if r := dst.RGBAAt(0, 0).R; r == 0 {
		t.Error("squash left the corner unfilled")
	}
	if r := dst.RGBAAt(15, 15).R; r == 0 {
		t.Error("squash left the corner unfilled")
	}
}

func TestFitImageFitLongestLetterboxes(t *testing.T) {
	// A wide source fitted by its longest side leaves bands above and
	// below.
	src := solidImage(64, 16, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	dst := FitImage(src, 16, 16, metadata.ResizeFitLongest)

	if got := dst.RGBAAt(8, 0); got.R != 0 {
		t.Errorf("top band = %v, want padding", got)
	}
	if got := dst.RGBAAt(8, 8); got.R == 0 {
		t.Errorf("center = %v, want source pixels", got)
	}
}

func TestFitImageFitShortestFills(t *testing.T) {
	// A wide source fitted by its shortest side covers the canvas and
	// crops the overflow.
	src := solidImage(64, 16, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	dst := FitImage(src, 16, 16, metadata.ResizeFitShortest)

	for _, p := range []image.Point{{X: 8, Y: 0}, {X: 8, Y: 8}, {X: 8, Y: 15}} {
		if got := dst.RGBAAt(p.X, p.Y); got.R == 0 {
			t.Errorf("pixel %v = %v, want source pixels", p, got)
		}
	}
}

func TestImageFeaturesLength(t *testing.T) {
	meta, err := metadata.Parse([]byte(
		"#define EI_CLASSIFIER_INPUT_WIDTH 8\n#define EI_CLASSIFIER_INPUT_HEIGHT 8\n"))
	if err != nil {
		t.Fatal(err)
	}
	src := solidImage(32, 32, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	if got := ImageFeatures(src, meta); len(got) != 64 {
		t.Errorf("feature count = %d, want 64", len(got))
	}
}

func TestDownmixMono(t *testing.T) {
	stereo := []int{100, 200, -50, 50, 0, 0}
	got := DownmixMono(stereo, 2)
	want := []float32{150, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("frames = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDownmixMonoInvalidChannels(t *testing.T) {
	if got := DownmixMono([]int{1, 2}, 0); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 2, 3}

	down := Resample(in, 4, 2)
	if len(down) != 2 {
		t.Fatalf("downsampled length = %d, want 2", len(down))
	}
	if down[0] != 0 || down[1] != 2 {
		t.Errorf("downsampled = %v", down)
	}

	up := Resample(in, 2, 4)
	if len(up) != 8 {
		t.Fatalf("upsampled length = %d, want 8", len(up))
	}
	// Linear interpolation places midpoints between source samples.
	if math.Abs(float64(up[1]-0.5)) > 1e-6 {
		t.Errorf("upsampled[1] = %v, want 0.5", up[1])
	}

	same := Resample(in, 4, 4)
	if &same[0] != &in[0] {
		t.Error("same-rate resample should return the input")
	}
}
