package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/neural"
)

// FixtureNetwork builds a tiny model that always predicts class 1
// (Meningioma): only the second output column carries weight, fed by
// strictly positive conv activations. That also keeps the class gradient
// positive, so heatmaps always resolve.
func FixtureNetwork() *neural.Network {
	convW := make([]float32, 1*1*3*2)
	convW[0*2+0] = 1 // red -> filter 0
	convW[1*2+1] = 1 // green -> filter 1
	denseW := make([]float32, 32*4)
	for i := 0; i < 32; i++ {
		denseW[i*4+1] = 0.2
	}
	return &neural.Network{
		Name:       "brain-tumor-cnn-test",
		InputShape: [3]int{8, 8, 3},
		Labels:     domain.ClassNames[:],
		Layers: []*neural.Layer{
			{
				Kind: neural.LayerConv2D, Name: "conv2d", Activation: neural.ActivationReLU,
				Filters: 2, KernelSize: 1, Stride: 1, Padding: neural.PaddingSame,
				W: tensor.New(tensor.WithShape(1, 1, 3, 2), tensor.WithBacking(convW)),
				B: tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{0.1, 0.1})),
			},
			{Kind: neural.LayerMaxPool2D, Name: "max_pooling2d", PoolSize: 2},
			{Kind: neural.LayerFlatten, Name: "flatten"},
			{
				Kind: neural.LayerDense, Name: "dense", Activation: neural.ActivationSoftmax, Units: 4,
				W: tensor.New(tensor.WithShape(32, 4), tensor.WithBacking(denseW)),
				B: tensor.New(tensor.WithShape(4), tensor.WithBacking(make([]float32, 4))),
			},
		},
	}
}

// WriteFixtureModel serializes FixtureNetwork into a temp artifact and
// returns its path.
func WriteFixtureModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, neural.Save(path, FixtureNetwork()))
	return path
}

// ScanColor is the default fixture pixel; red and green both nonzero so the
// fixture conv filters see signal.
func ScanColor() color.NRGBA {
	return color.NRGBA{R: 120, G: 64, B: 200, A: 255}
}

// SolidPNG encodes a 20x20 single-color PNG.
func SolidPNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// MultipartFile is one file part for BuildMultipart.
type MultipartFile struct {
	Field    string
	Filename string
	Content  []byte
}

// BuildMultipart assembles a multipart request body from form fields and
// file parts, returning the body and its Content-Type.
func BuildMultipart(t *testing.T, fields map[string]string, files ...MultipartFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.Field, f.Filename)
		require.NoError(t, err)
		_, err = fw.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}
