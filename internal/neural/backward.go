package neural

import (
	"context"
	"fmt"

	"gorgonia.org/tensor"
)

// ClassGradient runs a forward pass, then walks the stack backward computing
// the gradient of the class probability with respect to the post-activation
// output of the layer at index target. It returns that captured activation
// and the gradient, both shaped like the target layer's output.
//
// Only the layers between the target and the output need gradient rules;
// architectures with an unhandled layer on that route fail with
// ErrUnsupportedLayer. Batch size must be 1.
func (n *Network) ClassGradient(ctx context.Context, x *tensor.Dense, target, classIdx int) (activation, grad *tensor.Dense, err error) {
	if target < 0 || target >= len(n.Layers) {
		return nil, nil, fmt.Errorf("target layer index %d out of range", target)
	}
	if s := x.Shape(); len(s) == 0 || s[0] != 1 {
		return nil, nil, fmt.Errorf("class gradient wants batch size 1, got shape %v", x.Shape())
	}

	trace := make([]*tensor.Dense, len(n.Layers))
	cur := x
	for i, l := range n.Layers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		out, err := n.applyLayer(l, cur)
		if err != nil {
			return nil, nil, fmt.Errorf("layer %d (%s): %w", i, l.Name, err)
		}
		trace[i] = out
		cur = out
	}

	last := len(n.Layers) - 1
	probs := trace[last]
	ps := probs.Shape()
	if len(ps) != 2 || ps[0] != 1 {
		return nil, nil, fmt.Errorf("output shape %v is not a class vector", ps)
	}
	units := ps[1]
	if classIdx < 0 || classIdx >= units {
		return nil, nil, fmt.Errorf("class index %d out of range for %d outputs", classIdx, units)
	}

	// Seed with the one-hot selection of the chosen class score.
	seed := make([]float32, units)
	seed[classIdx] = 1
	dy := tensor.New(tensor.WithShape(1, units), tensor.WithBacking(seed))

	for i := last; i > target; i-- {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		l := n.Layers[i]
		var in *tensor.Dense
		if i == 0 {
			in = x
		} else {
			in = trace[i-1]
		}
		switch l.Kind {
		case LayerDense:
			dy, err = denseBackward(l, trace[i], dy)
		case LayerDropout:
			// Identity at inference time.
		case LayerFlatten:
			dy, err = flattenBackward(in.Shape(), dy)
		case LayerMaxPool2D:
			dy, err = maxPool2DBackward(l, in, dy)
		default:
			return nil, nil, fmt.Errorf("layer %d (%s): %w", i, l.Name, ErrUnsupportedLayer)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("layer %d (%s) backward: %w", i, l.Name, err)
		}
	}
	return trace[target], dy, nil
}

// denseBackward propagates a gradient through y = act(x*W + b) given the
// post-activation output. Softmax uses the Jacobian-vector product
// dz_j = y_j*(dy_j - sum_k dy_k*y_k); ReLU masks by the sign of the output.
func denseBackward(l *Layer, out, dy *tensor.Dense) (*tensor.Dense, error) {
	y := out.Data().([]float32)
	g := dy.Data().([]float32)
	if len(y) != len(g) {
		return nil, fmt.Errorf("gradient width %d does not match output width %d", len(g), len(y))
	}
	units := l.Units

	dz := make([]float32, len(g))
	switch l.Activation {
	case ActivationSoftmax:
		var dot float32
		for j := range g {
			dot += g[j] * y[j]
		}
		for j := range g {
			dz[j] = y[j] * (g[j] - dot)
		}
	case ActivationReLU:
		for j := range g {
			if y[j] > 0 {
				dz[j] = g[j]
			}
		}
	default:
		copy(dz, g)
	}

	ws := l.W.Shape()
	in := ws[0]
	w := l.W.Data().([]float32)
	dx := make([]float32, in)
	for i := 0; i < in; i++ {
		row := w[i*units : (i+1)*units]
		var acc float32
		for j, wv := range row {
			acc += dz[j] * wv
		}
		dx[i] = acc
	}
	return tensor.New(tensor.WithShape(1, in), tensor.WithBacking(dx)), nil
}

// flattenBackward restores the gradient to the pre-flatten shape. A flatten
// applied to an already-flat input was the identity.
func flattenBackward(inShape tensor.Shape, dy *tensor.Dense) (*tensor.Dense, error) {
	if len(inShape) == 2 {
		return dy, nil
	}
	if len(inShape) != 4 {
		return nil, fmt.Errorf("unexpected pre-flatten shape %v", inShape)
	}
	g := dy.Data().([]float32)
	if len(g) != inShape.TotalSize() {
		return nil, fmt.Errorf("gradient size %d does not match shape %v", len(g), inShape)
	}
	out := make([]float32, len(g))
	copy(out, g)
	return tensor.New(tensor.WithShape(inShape...), tensor.WithBacking(out)), nil
}

// maxPool2DBackward routes each pooled gradient cell to the first maximum in
// its window, recomputed from the pool's input.
func maxPool2DBackward(l *Layer, in, dy *tensor.Dense) (*tensor.Dense, error) {
	is := in.Shape()
	os := dy.Shape()
	if len(is) != 4 || len(os) != 4 {
		return nil, fmt.Errorf("maxpool2d backward wants rank-4 tensors, got %v and %v", is, os)
	}
	n, h, w, c := is[0], is[1], is[2], is[3]
	oh, ow := os[1], os[2]
	pool := l.PoolSize
	stride := l.Stride
	if stride <= 0 {
		stride = pool
	}

	src := in.Data().([]float32)
	g := dy.Data().([]float32)
	dx := make([]float32, n*h*w*c)
	for b := 0; b < n; b++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				for ch := 0; ch < c; ch++ {
					bestIdx := -1
					var best float32
					for py := 0; py < pool; py++ {
						iy := oy*stride + py
						if iy >= h {
							continue
						}
						for px := 0; px < pool; px++ {
							ix := ox*stride + px
							if ix >= w {
								continue
							}
							idx := ((b*h+iy)*w+ix)*c + ch
							if bestIdx < 0 || src[idx] > best {
								best = src[idx]
								bestIdx = idx
							}
						}
					}
					if bestIdx >= 0 {
						dx[bestIdx] += g[((b*oh+oy)*ow+ox)*c+ch]
					}
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(n, h, w, c), tensor.WithBacking(dx)), nil
}
