package neural

import (
	"fmt"

	"gorgonia.org/tensor"
)

// convOutDims computes conv output height/width and the top/left zero padding
// for the given padding mode. "same" distributes padding with the extra cell
// on the bottom/right, matching channels-last Keras convolutions.
func convOutDims(h, w, k, stride int, pad Padding) (oh, ow, padTop, padLeft int) {
	if stride <= 0 {
		stride = 1
	}
	if pad == PaddingSame {
		oh = (h + stride - 1) / stride
		ow = (w + stride - 1) / stride
		padH := (oh-1)*stride + k - h
		padW := (ow-1)*stride + k - w
		if padH < 0 {
			padH = 0
		}
		if padW < 0 {
			padW = 0
		}
		return oh, ow, padH / 2, padW / 2
	}
	oh = (h-k)/stride + 1
	ow = (w-k)/stride + 1
	return oh, ow, 0, 0
}

// poolOutDims computes max-pool output dims. Pooling always uses valid
// padding; a zero stride defaults to the pool size.
func poolOutDims(h, w, pool, stride int) (oh, ow int) {
	if stride <= 0 {
		stride = pool
	}
	return (h-pool)/stride + 1, (w-pool)/stride + 1
}

// conv2DForward applies an NHWC 2-D convolution with optional fused
// activation. Input (n,h,w,cin), kernel (k,k,cin,cout), bias (cout).
func conv2DForward(l *Layer, x *tensor.Dense) (*tensor.Dense, error) {
	shape := x.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("conv2d wants rank-4 input, got shape %v", shape)
	}
	n, h, w, cin := shape[0], shape[1], shape[2], shape[3]
	if l.W == nil || l.B == nil {
		return nil, fmt.Errorf("conv2d missing weights")
	}
	ws := l.W.Shape()
	if len(ws) != 4 || ws[0] != l.KernelSize || ws[1] != l.KernelSize || ws[2] != cin || ws[3] != l.Filters {
		return nil, fmt.Errorf("conv2d kernel shape %v does not fit input channels %d", ws, cin)
	}

	k := l.KernelSize
	stride := l.Stride
	if stride <= 0 {
		stride = 1
	}
	oh, ow, padTop, padLeft := convOutDims(h, w, k, stride, l.Padding)
	if oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("conv2d output collapses to %dx%d", oh, ow)
	}

	in := x.Data().([]float32)
	kw := l.W.Data().([]float32)
	bias := l.B.Data().([]float32)
	cout := l.Filters
	out := make([]float32, n*oh*ow*cout)

	relu := l.Activation == ActivationReLU
	for b := 0; b < n; b++ {
		for oy := 0; oy < oh; oy++ {
			iy0 := oy*stride - padTop
			for ox := 0; ox < ow; ox++ {
				ix0 := ox*stride - padLeft
				outBase := ((b*oh+oy)*ow + ox) * cout
				for f := 0; f < cout; f++ {
					acc := bias[f]
					for ky := 0; ky < k; ky++ {
						iy := iy0 + ky
						if iy < 0 || iy >= h {
							continue
						}
						for kx := 0; kx < k; kx++ {
							ix := ix0 + kx
							if ix < 0 || ix >= w {
								continue
							}
							inBase := ((b*h+iy)*w + ix) * cin
							wBase := ((ky*k+kx)*cin)*cout + f
							for c := 0; c < cin; c++ {
								acc += in[inBase+c] * kw[wBase+c*cout]
							}
						}
					}
					if relu && acc < 0 {
						acc = 0
					}
					out[outBase+f] = acc
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(n, oh, ow, cout), tensor.WithBacking(out)), nil
}

// maxPool2DForward applies NHWC max pooling with valid padding.
func maxPool2DForward(l *Layer, x *tensor.Dense) (*tensor.Dense, error) {
	shape := x.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("maxpool2d wants rank-4 input, got shape %v", shape)
	}
	n, h, w, c := shape[0], shape[1], shape[2], shape[3]
	pool := l.PoolSize
	if pool <= 0 {
		return nil, fmt.Errorf("maxpool2d pool size %d", pool)
	}
	stride := l.Stride
	if stride <= 0 {
		stride = pool
	}
	oh, ow := poolOutDims(h, w, pool, stride)
	if oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("maxpool2d output collapses to %dx%d", oh, ow)
	}

	in := x.Data().([]float32)
	out := make([]float32, n*oh*ow*c)
	for b := 0; b < n; b++ {
		for oy := 0; oy < oh; oy++ {
			for ox := 0; ox < ow; ox++ {
				outBase := ((b*oh+oy)*ow + ox) * c
				for ch := 0; ch < c; ch++ {
					best := float32(0)
					first := true
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
							v := in[((b*h+iy)*w+ix)*c+ch]
							if first || v > best {
								best = v
								first = false
							}
						}
					}
					out[outBase+ch] = best
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(n, oh, ow, c), tensor.WithBacking(out)), nil
}

// flattenForward collapses (n,h,w,c) into (n, h*w*c). The NHWC backing is
// already row-major in that order, so this is a copy plus reshape.
func flattenForward(x *tensor.Dense) (*tensor.Dense, error) {
	shape := x.Shape()
	if len(shape) == 2 {
		return x, nil
	}
	if len(shape) != 4 {
		return nil, fmt.Errorf("flatten wants rank-4 input, got shape %v", shape)
	}
	n := shape[0]
	per := shape[1] * shape[2] * shape[3]
	in := x.Data().([]float32)
	out := make([]float32, len(in))
	copy(out, in)
	return tensor.New(tensor.WithShape(n, per), tensor.WithBacking(out)), nil
}
