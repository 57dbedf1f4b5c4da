// Package features converts raw sensor data into the feature vectors
// the DSP pipeline expects: image fitting and pixel packing for camera
// models, downmixing and resampling for audio models.
package features

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/metadata"
)

// FitImage maps the source image onto a width x height canvas using the
// model's resize mode. Squash stretches to fill, fit-shortest scales so
// the shorter side fills and crops the overflow, fit-longest scales so
// the longer side fits and letterboxes the rest.
func FitImage(src image.Image, width, height int, mode metadata.ResizeMode) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return dst
	}

	scaleX := float64(width) / float64(srcW)
	scaleY := float64(height) / float64(srcH)

	var scale float64
	switch mode {
	case metadata.ResizeFitShortest:
		scale = scaleX
		if scaleY > scale {
			scale = scaleY
		}
	case metadata.ResizeFitLongest:
		scale = scaleX
		if scaleY < scale {
			scale = scaleY
		}
	default:
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, srcBounds, xdraw.Over, nil)
		return dst
	}

	newW := int(float64(srcW) * scale)
	newH := int(float64(srcH) * scale)
	offX := (width - newW) / 2
	offY := (height - newH) / 2
	xdraw.ApproxBiLinear.Scale(dst,
		image.Rect(offX, offY, offX+newW, offY+newH), src, srcBounds, xdraw.Over, nil)
	return dst
}

// PackRGB converts pixels to the packed 0xRRGGBB float encoding used
// for image features.
func PackRGB(img *image.RGBA) []float32 {
	bounds := img.Bounds()
	features := make([]float32, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			offset := img.PixOffset(x, y)
			r := uint32(img.Pix[offset])
			g := uint32(img.Pix[offset+1])
			b := uint32(img.Pix[offset+2])
			features = append(features, float32(r<<16|g<<8|b))
		}
	}
	return features
}

// ImageFeatures fits the image to the model input and packs it in one
// step.
func ImageFeatures(src image.Image, meta *metadata.Metadata) []float32 {
	fitted := FitImage(src, meta.InputWidth(), meta.InputHeight(), meta.ImageResizeMode())
	return PackRGB(fitted)
}
