package vision

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

// DefaultOverlayOpacity is the blend weight of the colored heatmap over the
// source scan.
const DefaultOverlayOpacity = 0.4

// Overlay renders an activation heatmap on top of the source image: the
// coarse map is bilinearly upsampled to the image's pixel dimensions, colored
// through the jet ramp, and alpha-blended at the given opacity. The result
// always has the source image's dimensions.
//
// Overlays are best effort: any malformed input returns the original image
// unchanged.
func Overlay(img image.Image, hm *domain.Heatmap, opacity float64) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return img
	}
	if hm == nil || hm.Width <= 0 || hm.Height <= 0 || len(hm.Values) != hm.Width*hm.Height {
		return img
	}
	if opacity <= 0 {
		return img
	}
	if opacity > 1 {
		opacity = 1
	}

	scaled := resizeBilinear(hm, w, h)
	colored := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl := jetColor(scaled[y*w+x])
			off := y*colored.Stride + x*4
			colored.Pix[off] = r
			colored.Pix[off+1] = g
			colored.Pix[off+2] = bl
			colored.Pix[off+3] = 255
		}
	}
	return imaging.Overlay(imaging.Clone(img), colored, image.Pt(0, 0), opacity)
}

// resizeBilinear upsamples the heatmap grid to w x h. The map stays in float
// form until colormap lookup; half-pixel centers keep the interpolation
// aligned with how the rest of the pipeline samples images.
func resizeBilinear(hm *domain.Heatmap, w, h int) []float32 {
	out := make([]float32, w*h)
	sx := float64(hm.Width) / float64(w)
	sy := float64(hm.Height) / float64(h)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := int(fy)
		if fy < 0 {
			fy, y0 = 0, 0
		}
		y1 := y0 + 1
		if y1 >= hm.Height {
			y1 = hm.Height - 1
		}
		wy := float32(fy - float64(y0))
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := int(fx)
			if fx < 0 {
				fx, x0 = 0, 0
			}
			x1 := x0 + 1
			if x1 >= hm.Width {
				x1 = hm.Width - 1
			}
			wx := float32(fx - float64(x0))

			top := hm.At(x0, y0)*(1-wx) + hm.At(x1, y0)*wx
			bot := hm.At(x0, y1)*(1-wx) + hm.At(x1, y1)*wx
			out[y*w+x] = top*(1-wy) + bot*wy
		}
	}
	return out
}
