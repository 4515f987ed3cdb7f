// Package vision converts scans between image and tensor form: preprocessing
// uploads into classifier input tensors and rendering activation heatmaps
// back onto the source image.
package vision

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gorgonia.org/tensor"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

// Channels is the color depth the classifier expects.
const Channels = 3

// Preprocess converts a decoded scan into an input tensor of shape
// (1, height, width, 3). The image is cover-fitted: scaled with Lanczos
// resampling to fill the target box preserving aspect ratio, then
// center-cropped. Pixels are scaled to [0,1]; an alpha channel, if present,
// is dropped rather than composited.
func Preprocess(img image.Image, width, height int) (*tensor.Dense, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image", domain.ErrPreprocessFailed)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: bad target size %dx%d", domain.ErrPreprocessFailed, width, height)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty %dx%d image", domain.ErrPreprocessFailed, b.Dx(), b.Dy())
	}

	fitted := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	if sz := fitted.Bounds().Size(); sz.X != width || sz.Y != height {
		return nil, fmt.Errorf("%w: fit produced %dx%d, want %dx%d", domain.ErrPreprocessFailed, sz.X, sz.Y, width, height)
	}

	data := make([]float32, width*height*Channels)
	i := 0
	for y := 0; y < height; y++ {
		row := fitted.Pix[y*fitted.Stride : y*fitted.Stride+width*4]
		for x := 0; x < width; x++ {
			// NRGBA rows are non-premultiplied, so dropping the fourth byte
			// keeps the original color values.
			data[i] = float32(row[x*4]) / 255
			data[i+1] = float32(row[x*4+1]) / 255
			data[i+2] = float32(row[x*4+2]) / 255
			i += Channels
		}
	}
	return tensor.New(tensor.WithShape(1, height, width, Channels), tensor.WithBacking(data)), nil
}
