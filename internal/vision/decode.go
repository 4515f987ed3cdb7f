package vision

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

// DecodeImage decodes an uploaded scan. JPEG and PNG are the accepted
// formats; anything else maps to ErrInvalidImage.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	return img, format, nil
}
