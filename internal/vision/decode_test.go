package vision

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

func TestDecodeImage_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(8, 8, color.NRGBA{R: 255, A: 255})))

	img, format, err := DecodeImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestDecodeImage_Garbage(t *testing.T) {
	_, _, err := DecodeImage(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}
