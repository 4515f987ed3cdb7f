package neural

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"
)

// denseForward applies y = x*W + b with optional fused activation.
// Input (n,in), weights (in,out), bias (out).
func denseForward(l *Layer, x *tensor.Dense) (*tensor.Dense, error) {
	shape := x.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("dense wants rank-2 input, got shape %v", shape)
	}
	n, in := shape[0], shape[1]
	if l.W == nil || l.B == nil {
		return nil, fmt.Errorf("dense missing weights")
	}
	ws := l.W.Shape()
	if len(ws) != 2 || ws[0] != in || ws[1] != l.Units {
		return nil, fmt.Errorf("dense weight shape %v does not fit input width %d", ws, in)
	}

	wts := l.W.Data().([]float32)
	data := x.Data().([]float32)
	bias := l.B.Data().([]float32)
	units := l.Units
	out := make([]float32, n*units)

	for b := 0; b < n; b++ {
		row := data[b*in : (b+1)*in]
		dst := out[b*units : (b+1)*units]
		copy(dst, bias)
		for i, v := range row {
			if v == 0 {
				continue
			}
			wRow := wts[i*units : (i+1)*units]
			for j, wv := range wRow {
				dst[j] += v * wv
			}
		}
		switch l.Activation {
		case ActivationReLU:
			for j, v := range dst {
				if v < 0 {
					dst[j] = 0
				}
			}
		case ActivationSoftmax:
			softmaxInPlace(dst)
		}
	}
	return tensor.New(tensor.WithShape(n, units), tensor.WithBacking(out)), nil
}

// softmaxInPlace applies a numerically stable softmax to one row.
func softmaxInPlace(row []float32) {
	if len(row) == 0 {
		return
	}
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range row {
		e := math.Exp(float64(v - max))
		row[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / sum)
	for i := range row {
		row[i] *= inv
	}
}
