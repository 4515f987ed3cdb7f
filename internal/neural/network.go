// Package neural implements a small feed-forward inference engine for
// convolutional image classifiers. Networks are ordered layer stacks with
// explicit weights, loaded from safetensors artifacts. The engine exposes the
// layer list, can capture any intermediate activation during a forward pass,
// and can compute the gradient of a class score with respect to a captured
// activation, which is what class-activation mapping needs.
package neural

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"
)

type LayerKind string

const (
	LayerConv2D    LayerKind = "conv2d"
	LayerMaxPool2D LayerKind = "maxpool2d"
	LayerFlatten   LayerKind = "flatten"
	LayerDense     LayerKind = "dense"
	LayerDropout   LayerKind = "dropout"
)

type Activation string

const (
	ActivationNone    Activation = ""
	ActivationReLU    Activation = "relu"
	ActivationSoftmax Activation = "softmax"
)

type Padding string

const (
	PaddingSame  Padding = "same"
	PaddingValid Padding = "valid"
)

// ErrUnsupportedLayer reports a layer on the backward route that has no
// gradient rule. Whether a gradient is computable depends on the
// architecture between the target layer and the output.
var ErrUnsupportedLayer = errors.New("layer has no gradient rule")

// Layer is one stage of the network. Weight tensors are nil for layers that
// have none. Conv2D weights are (kh, kw, cin, cout) with bias (cout); Dense
// weights are (in, out) with bias (out). All tensors are float32.
type Layer struct {
	Kind       LayerKind
	Name       string
	Activation Activation
	Filters    int
	KernelSize int
	Stride     int
	Padding    Padding
	PoolSize   int
	Units      int
	Rate       float64

	W *tensor.Dense
	B *tensor.Dense
}

// Network is an ordered layer stack operating on NHWC float32 tensors.
type Network struct {
	Name       string
	InputShape [3]int // height, width, channels
	Layers     []*Layer

	// Labels carried by the artifact metadata, if any. Informational: the
	// caller decides whether to trust or verify them.
	Labels []string
}

// Forward runs one inference pass and returns the output of the final layer.
// The input tensor is never modified.
func (n *Network) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	cur := x
	for i, l := range n.Layers {
		out, err := n.applyLayer(l, cur)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, l.Name, err)
		}
		cur = out
	}
	return cur, nil
}

// ForwardCapture runs a forward pass and additionally returns a copy of the
// post-activation output of the layer at index capture.
func (n *Network) ForwardCapture(x *tensor.Dense, capture int) (out, captured *tensor.Dense, err error) {
	if capture < 0 || capture >= len(n.Layers) {
		return nil, nil, fmt.Errorf("capture index %d out of range", capture)
	}
	cur := x
	for i, l := range n.Layers {
		next, err := n.applyLayer(l, cur)
		if err != nil {
			return nil, nil, fmt.Errorf("layer %d (%s): %w", i, l.Name, err)
		}
		if i == capture {
			captured = next.Clone().(*tensor.Dense)
		}
		cur = next
	}
	return cur, captured, nil
}

// forwardTrace runs a forward pass keeping every layer's output. Index i
// holds the output of layer i.
func (n *Network) forwardTrace(x *tensor.Dense) ([]*tensor.Dense, error) {
	outs := make([]*tensor.Dense, len(n.Layers))
	cur := x
	for i, l := range n.Layers {
		out, err := n.applyLayer(l, cur)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, l.Name, err)
		}
		outs[i] = out
		cur = out
	}
	return outs, nil
}

func (n *Network) applyLayer(l *Layer, x *tensor.Dense) (*tensor.Dense, error) {
	switch l.Kind {
	case LayerConv2D:
		return conv2DForward(l, x)
	case LayerMaxPool2D:
		return maxPool2DForward(l, x)
	case LayerFlatten:
		return flattenForward(x)
	case LayerDense:
		return denseForward(l, x)
	case LayerDropout:
		// Inference mode: dropout is the identity.
		return x, nil
	default:
		return nil, fmt.Errorf("unknown layer kind %q", l.Kind)
	}
}

// LayerSummary describes one layer for introspection endpoints.
type LayerSummary struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	OutputShape []int  `json:"output_shape"`
	Params      int    `json:"params"`
}

// Summary walks the stack propagating shapes from the declared input shape.
func (n *Network) Summary() ([]LayerSummary, error) {
	h, w, c := n.InputShape[0], n.InputShape[1], n.InputShape[2]
	flat := 0
	flattened := false
	out := make([]LayerSummary, 0, len(n.Layers))
	for i, l := range n.Layers {
		s := LayerSummary{Name: l.Name, Kind: string(l.Kind)}
		switch l.Kind {
		case LayerConv2D:
			if flattened {
				return nil, fmt.Errorf("layer %d (%s): conv2d after flatten", i, l.Name)
			}
			oh, ow, _, _ := convOutDims(h, w, l.KernelSize, l.Stride, l.Padding)
			s.Params = l.KernelSize*l.KernelSize*c*l.Filters + l.Filters
			h, w, c = oh, ow, l.Filters
			s.OutputShape = []int{h, w, c}
		case LayerMaxPool2D:
			if flattened {
				return nil, fmt.Errorf("layer %d (%s): maxpool2d after flatten", i, l.Name)
			}
			oh, ow := poolOutDims(h, w, l.PoolSize, l.Stride)
			h, w = oh, ow
			s.OutputShape = []int{h, w, c}
		case LayerFlatten:
			flat = h * w * c
			flattened = true
			s.OutputShape = []int{flat}
		case LayerDense:
			if !flattened {
				flat = h * w * c
				flattened = true
			}
			s.Params = flat*l.Units + l.Units
			flat = l.Units
			s.OutputShape = []int{flat}
		case LayerDropout:
			if flattened {
				s.OutputShape = []int{flat}
			} else {
				s.OutputShape = []int{h, w, c}
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// ParamCount sums the trainable parameters across all layers.
func (n *Network) ParamCount() int {
	total := 0
	for _, l := range n.Layers {
		if l.W != nil {
			total += l.W.Shape().TotalSize()
		}
		if l.B != nil {
			total += l.B.Shape().TotalSize()
		}
	}
	return total
}

// OutputWidth returns the unit count of the final dense layer, or 0 when the
// stack does not end in one.
func (n *Network) OutputWidth() int {
	if len(n.Layers) == 0 {
		return 0
	}
	last := n.Layers[len(n.Layers)-1]
	if last.Kind != LayerDense {
		return 0
	}
	return last.Units
}
