// Package explain produces gradient-weighted class activation (Grad-CAM)
// heatmaps for classifier decisions. Explanations are strictly best effort:
// every failure surfaces as ErrHeatmapUnavailable and never invalidates the
// prediction it would have explained.
package explain

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gorgonia.org/tensor"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/neural"
)

// Engine computes heatmaps with a bounded time budget per request.
type Engine struct {
	timeout time.Duration
}

// NewEngine creates an engine. A zero timeout disables the bound.
func NewEngine(timeout time.Duration) *Engine {
	return &Engine{timeout: timeout}
}

// TargetLayer scans the stack from the output backward and returns the index
// of the first layer that either is a 2-D convolution or carries "conv" in
// its name.
func TargetLayer(net *neural.Network) (int, bool) {
	for i := len(net.Layers) - 1; i >= 0; i-- {
		l := net.Layers[i]
		if l.Kind == neural.LayerConv2D {
			return i, true
		}
		if strings.Contains(strings.ToLower(l.Name), "conv") {
			return i, true
		}
	}
	return -1, false
}

// HeatmapFor explains the given class decision on one preprocessed input.
// The activation of the target layer is weighted by the spatial mean of the
// class score's gradient, averaged across channels, rectified and normalized
// to [0,1]. A map with no positive response is reported unavailable rather
// than returned as noise.
func (e *Engine) HeatmapFor(ctx context.Context, net *neural.Network, x *tensor.Dense, classIdx int) (*domain.Heatmap, error) {
	target, ok := TargetLayer(net)
	if !ok {
		return nil, fmt.Errorf("%w: no convolution layer to explain", domain.ErrHeatmapUnavailable)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	act, grad, err := net.ClassGradient(ctx, x, target, classIdx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHeatmapUnavailable, err)
	}
	hm, err := composeCAM(act, grad)
	if err != nil {
		return nil, err
	}
	return hm, nil
}

// composeCAM folds an activation (1,h,w,c) and its gradient into one
// normalized 2-D map.
func composeCAM(act, grad *tensor.Dense) (*domain.Heatmap, error) {
	shape := act.Shape()
	if len(shape) != 4 || shape[0] != 1 {
		return nil, fmt.Errorf("%w: target activation has shape %v, not a spatial map", domain.ErrHeatmapUnavailable, shape)
	}
	h, w, c := shape[1], shape[2], shape[3]
	a := act.Data().([]float32)
	g := grad.Data().([]float32)
	if len(a) != len(g) {
		return nil, fmt.Errorf("%w: gradient size %d does not match activation size %d", domain.ErrHeatmapUnavailable, len(g), len(a))
	}

	// Spatial global average pooling of the gradient per channel.
	pooled := make([]float32, c)
	cells := float32(h * w)
	for i, v := range g {
		pooled[i%c] += v
	}
	for k := range pooled {
		pooled[k] /= cells
	}

	// Channel-weighted activation, averaged over channels, then rectified.
	values := make([]float32, h*w)
	var max float32
	for p := 0; p < h*w; p++ {
		var sum float32
		base := p * c
		for k := 0; k < c; k++ {
			sum += a[base+k] * pooled[k]
		}
		v := sum / float32(c)
		if v < 0 {
			v = 0
		}
		values[p] = v
		if v > max {
			max = v
		}
	}

	if max <= 0 || math.IsInf(float64(max), 0) || math.IsNaN(float64(max)) {
		return nil, fmt.Errorf("%w: activation map has no positive response", domain.ErrHeatmapUnavailable)
	}
	// Divide rather than multiply by the reciprocal so the peak lands on
	// exactly 1.0.
	for i := range values {
		values[i] /= max
	}
	return &domain.Heatmap{Width: w, Height: h, Values: values}, nil
}
