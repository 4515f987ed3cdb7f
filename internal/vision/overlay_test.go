package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

func uniformHeatmap(w, h int, v float32) *domain.Heatmap {
	vals := make([]float32, w*h)
	for i := range vals {
		vals[i] = v
	}
	return &domain.Heatmap{Width: w, Height: h, Values: vals}
}

func TestOverlay_KeepsSourceDimensions(t *testing.T) {
	img := solidImage(200, 120, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
	hm := uniformHeatmap(7, 5, 0.5)

	out := Overlay(img, hm, DefaultOverlayOpacity)
	require.NotNil(t, out)
	assert.Equal(t, 200, out.Bounds().Dx())
	assert.Equal(t, 120, out.Bounds().Dy())
}

func TestOverlay_NilHeatmapReturnsOriginal(t *testing.T) {
	img := solidImage(40, 40, color.NRGBA{A: 255})

	out := Overlay(img, nil, DefaultOverlayOpacity)
	assert.Same(t, image.Image(img), out)
}

func TestOverlay_MalformedHeatmapReturnsOriginal(t *testing.T) {
	img := solidImage(40, 40, color.NRGBA{A: 255})
	hm := &domain.Heatmap{Width: 4, Height: 4, Values: make([]float32, 3)}

	out := Overlay(img, hm, DefaultOverlayOpacity)
	assert.Same(t, image.Image(img), out)
}

func TestOverlay_ZeroOpacityReturnsOriginal(t *testing.T) {
	img := solidImage(40, 40, color.NRGBA{A: 255})

	out := Overlay(img, uniformHeatmap(4, 4, 1), 0)
	assert.Same(t, image.Image(img), out)
}

func TestOverlay_BlendsTowardRamp(t *testing.T) {
	// Black base, saturated heatmap: every pixel should be opacity * jet(1).
	img := solidImage(64, 64, color.NRGBA{A: 255})
	hm := uniformHeatmap(8, 8, 1)

	out := Overlay(img, hm, 0.4)
	r, g, b, _ := out.At(32, 32).RGBA()
	jr, jg, jb := jetColor(1)
	assert.InDelta(t, 0.4*float64(jr), float64(r>>8), 2)
	assert.InDelta(t, 0.4*float64(jg), float64(g>>8), 2)
	assert.InDelta(t, 0.4*float64(jb), float64(b>>8), 2)
}

func TestJetColor_RampEndpoints(t *testing.T) {
	r, g, b := jetColor(0)
	assert.Equal(t, [3]uint8{0, 0, 128}, [3]uint8{r, g, b})

	r, g, b = jetColor(1)
	assert.Equal(t, [3]uint8{128, 0, 0}, [3]uint8{r, g, b})

	r, g, b = jetColor(0.5)
	assert.Equal(t, uint8(255), g)
	assert.InDelta(t, float64(r), float64(b), 8)
}

func TestResizeBilinear_ConstantField(t *testing.T) {
	vals := resizeBilinear(uniformHeatmap(3, 3, 0.7), 30, 20)
	require.Len(t, vals, 600)
	for _, v := range vals {
		assert.InDelta(t, 0.7, float64(v), 1e-5)
	}
}

func TestResizeBilinear_MonotoneAlongGradient(t *testing.T) {
	hm := &domain.Heatmap{Width: 2, Height: 1, Values: []float32{0, 1}}
	vals := resizeBilinear(hm, 16, 1)
	for i := 1; i < len(vals); i++ {
		assert.GreaterOrEqual(t, vals[i], vals[i-1])
	}
	assert.InDelta(t, 0.0, float64(vals[0]), 0.05)
	assert.InDelta(t, 1.0, float64(vals[15]), 0.05)
}
