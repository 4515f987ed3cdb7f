package explain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/neural"
)

func convLayer(name string, filters, kernel, cin int, bias float32) *neural.Layer {
	w := make([]float32, kernel*kernel*cin*filters)
	for i := range w {
		w[i] = float32(i%5)*0.1 - 0.1
	}
	b := make([]float32, filters)
	for i := range b {
		b[i] = bias
	}
	return &neural.Layer{
		Kind: neural.LayerConv2D, Name: name, Activation: neural.ActivationReLU,
		Filters: filters, KernelSize: kernel, Stride: 1, Padding: neural.PaddingSame,
		W: tensor.New(tensor.WithShape(kernel, kernel, cin, filters), tensor.WithBacking(w)),
		B: tensor.New(tensor.WithShape(filters), tensor.WithBacking(b)),
	}
}

func denseLayer(name string, in, units int, act neural.Activation) *neural.Layer {
	w := make([]float32, in*units)
	for i := range w {
		w[i] = float32(i%3)*0.1 - 0.1
	}
	return &neural.Layer{
		Kind: neural.LayerDense, Name: name, Activation: act, Units: units,
		W: tensor.New(tensor.WithShape(in, units), tensor.WithBacking(w)),
		B: tensor.New(tensor.WithShape(units), tensor.WithBacking(make([]float32, units))),
	}
}

// hotColumnDense wires every input positively into one class column, which
// keeps the class gradient strictly positive and the resulting map nonzero.
func hotColumnDense(name string, in, units, hot int) *neural.Layer {
	w := make([]float32, in*units)
	for i := 0; i < in; i++ {
		w[i*units+hot] = 0.2
	}
	return &neural.Layer{
		Kind: neural.LayerDense, Name: name, Activation: neural.ActivationSoftmax, Units: units,
		W: tensor.New(tensor.WithShape(in, units), tensor.WithBacking(w)),
		B: tensor.New(tensor.WithShape(units), tensor.WithBacking(make([]float32, units))),
	}
}

func camNet(convBias float32) *neural.Network {
	return &neural.Network{
		Name:       "cam-net",
		InputShape: [3]int{6, 6, 1},
		Layers: []*neural.Layer{
			convLayer("conv2d_1", 3, 3, 1, convBias),
			{Kind: neural.LayerMaxPool2D, Name: "max_pooling2d_1", PoolSize: 2},
			{Kind: neural.LayerFlatten, Name: "flatten"},
			hotColumnDense("dense_out", 27, 4, 1),
		},
	}
}

func camInput() *tensor.Dense {
	data := make([]float32, 36)
	for i := range data {
		data[i] = float32(i%7) / 7
	}
	return tensor.New(tensor.WithShape(1, 6, 6, 1), tensor.WithBacking(data))
}

func TestTargetLayer_PicksDeepestConv(t *testing.T) {
	net := &neural.Network{
		Layers: []*neural.Layer{
			convLayer("conv2d_1", 2, 3, 1, 0),
			{Kind: neural.LayerMaxPool2D, Name: "pool_1", PoolSize: 2},
			convLayer("conv2d_2", 2, 3, 2, 0),
			{Kind: neural.LayerFlatten, Name: "flatten"},
			denseLayer("dense_out", 8, 4, neural.ActivationSoftmax),
		},
	}

	idx, ok := TargetLayer(net)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestTargetLayer_FallsBackToNameMatch(t *testing.T) {
	net := &neural.Network{
		Layers: []*neural.Layer{
			{Kind: neural.LayerMaxPool2D, Name: "Conv_Pool", PoolSize: 2},
			{Kind: neural.LayerFlatten, Name: "flatten"},
			denseLayer("dense_out", 8, 4, neural.ActivationSoftmax),
		},
	}

	idx, ok := TargetLayer(net)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestTargetLayer_NoneFound(t *testing.T) {
	net := &neural.Network{
		Layers: []*neural.Layer{
			{Kind: neural.LayerFlatten, Name: "flatten"},
			denseLayer("dense_out", 8, 4, neural.ActivationSoftmax),
		},
	}

	_, ok := TargetLayer(net)
	assert.False(t, ok)
}

func TestEngine_HeatmapForNormalizedMap(t *testing.T) {
	e := NewEngine(0)
	net := camNet(0.2)

	hm, err := e.HeatmapFor(context.Background(), net, camInput(), 1)
	require.NoError(t, err)
	require.NotNil(t, hm)

	// The map covers the conv layer's spatial grid.
	assert.Equal(t, 6, hm.Width)
	assert.Equal(t, 6, hm.Height)
	require.Len(t, hm.Values, 36)

	var max float32
	for _, v := range hm.Values {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
		if v > max {
			max = v
		}
	}
	assert.Equal(t, float32(1), max)
}

func TestEngine_HeatmapForNoConvLayer(t *testing.T) {
	e := NewEngine(0)
	net := &neural.Network{
		InputShape: [3]int{1, 1, 8},
		Layers: []*neural.Layer{
			{Kind: neural.LayerFlatten, Name: "flatten"},
			denseLayer("dense_out", 8, 4, neural.ActivationSoftmax),
		},
	}
	x := tensor.New(tensor.WithShape(1, 1, 1, 8), tensor.WithBacking(make([]float32, 8)))

	_, err := e.HeatmapFor(context.Background(), net, x, 0)
	assert.ErrorIs(t, err, domain.ErrHeatmapUnavailable)
}

func TestEngine_HeatmapForFlatActivation(t *testing.T) {
	// A strongly negative conv bias drives the ReLU activation to zero
	// everywhere, leaving nothing to normalize.
	e := NewEngine(0)
	net := camNet(-100)

	_, err := e.HeatmapFor(context.Background(), net, camInput(), 0)
	assert.ErrorIs(t, err, domain.ErrHeatmapUnavailable)
}

func TestEngine_HeatmapForNamedPoolTarget(t *testing.T) {
	// A pooling layer whose name carries "conv" shadows the real conv in the
	// backward scan; its spatial activation still yields a usable map.
	e := NewEngine(0)
	net := &neural.Network{
		InputShape: [3]int{6, 6, 1},
		Layers: []*neural.Layer{
			convLayer("features", 1, 3, 1, 0.2),
			{Kind: neural.LayerMaxPool2D, Name: "conv_pool", PoolSize: 2},
			{Kind: neural.LayerFlatten, Name: "flatten"},
			hotColumnDense("dense_out", 9, 4, 0),
		},
	}

	idx, ok := TargetLayer(net)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	hm, err := e.HeatmapFor(context.Background(), net, camInput(), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, hm.Width)
	assert.Equal(t, 3, hm.Height)
}

func TestEngine_HeatmapForTimeout(t *testing.T) {
	e := NewEngine(time.Nanosecond)
	net := camNet(0.2)

	_, err := e.HeatmapFor(context.Background(), net, camInput(), 0)
	assert.ErrorIs(t, err, domain.ErrHeatmapUnavailable)
}

func TestEngine_HeatmapForDenseTargetByName(t *testing.T) {
	// A dense layer matching the name fallback yields a non-spatial
	// activation; the engine reports unavailable instead of a bogus map.
	e := NewEngine(0)
	net := &neural.Network{
		InputShape: [3]int{1, 1, 8},
		Layers: []*neural.Layer{
			{Kind: neural.LayerFlatten, Name: "flatten"},
			denseLayer("conv_head", 8, 4, neural.ActivationSoftmax),
		},
	}
	x := tensor.New(tensor.WithShape(1, 1, 1, 8), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6, 7, 8}))

	_, err := e.HeatmapFor(context.Background(), net, x, 0)
	assert.ErrorIs(t, err, domain.ErrHeatmapUnavailable)
}
