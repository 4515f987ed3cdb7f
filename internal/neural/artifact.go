package neural

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"gorgonia.org/tensor"
)

// Model artifacts use safetensors framing: an 8-byte little-endian header
// length, a JSON header mapping tensor names to dtype/shape/offsets, then the
// raw little-endian float32 buffers. The layer stack description travels as a
// JSON string under the "architecture" key of the __metadata__ entry; weight
// tensors are named "<layer>.weight" and "<layer>.bias".

const (
	metadataKey = "__metadata__"
	archKey     = "architecture"
	dtypeF32    = "F32"

	// maxHeaderBytes rejects garbage length prefixes before allocating.
	maxHeaderBytes = 16 << 20
)

type tensorInfo struct {
	DType       string    `json:"dtype"`
	Shape       []uint64  `json:"shape"`
	DataOffsets [2]uint64 `json:"data_offsets"`
}

type archSpec struct {
	Name       string      `json:"name"`
	InputShape [3]int      `json:"input_shape"`
	Classes    []string    `json:"classes,omitempty"`
	Layers     []layerSpec `json:"layers"`
}

type layerSpec struct {
	Kind       string  `json:"kind"`
	Name       string  `json:"name"`
	Activation string  `json:"activation,omitempty"`
	Filters    int     `json:"filters,omitempty"`
	KernelSize int     `json:"kernel_size,omitempty"`
	Stride     int     `json:"stride,omitempty"`
	Padding    string  `json:"padding,omitempty"`
	PoolSize   int     `json:"pool_size,omitempty"`
	Units      int     `json:"units,omitempty"`
	Rate       float64 `json:"rate,omitempty"`
}

// Load reads a network from a safetensors artifact.
func Load(path string) (*Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return n, nil
}

func decode(raw []byte) (*Network, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("truncated file (%d bytes)", len(raw))
	}
	headerLen := binary.LittleEndian.Uint64(raw[:8])
	if headerLen == 0 || headerLen > maxHeaderBytes || 8+headerLen > uint64(len(raw)) {
		return nil, fmt.Errorf("implausible header length %d", headerLen)
	}
	header := raw[8 : 8+headerLen]
	payload := raw[8+headerLen:]

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(header, &entries); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	meta := map[string]string{}
	if m, ok := entries[metadataKey]; ok {
		if err := json.Unmarshal(m, &meta); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
		delete(entries, metadataKey)
	}
	archJSON, ok := meta[archKey]
	if !ok || archJSON == "" {
		return nil, fmt.Errorf("no architecture metadata")
	}
	var arch archSpec
	if err := json.Unmarshal([]byte(archJSON), &arch); err != nil {
		return nil, fmt.Errorf("parse architecture: %w", err)
	}
	if arch.InputShape[0] <= 0 || arch.InputShape[1] <= 0 || arch.InputShape[2] <= 0 {
		return nil, fmt.Errorf("bad input shape %v", arch.InputShape)
	}
	if len(arch.Layers) == 0 {
		return nil, fmt.Errorf("architecture has no layers")
	}

	infos := make(map[string]tensorInfo, len(entries))
	for name, msg := range entries {
		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, fmt.Errorf("parse tensor %q: %w", name, err)
		}
		infos[name] = info
	}

	net := &Network{
		Name:       arch.Name,
		InputShape: arch.InputShape,
		Labels:     arch.Classes,
	}
	h, w, c := arch.InputShape[0], arch.InputShape[1], arch.InputShape[2]
	flat := 0
	flattened := false
	seen := make(map[string]bool, len(arch.Layers))
	var err error
	for i, spec := range arch.Layers {
		if spec.Name == "" {
			return nil, fmt.Errorf("layer %d has no name", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate layer name %q", spec.Name)
		}
		seen[spec.Name] = true

		l := &Layer{
			Kind:       LayerKind(spec.Kind),
			Name:       spec.Name,
			Activation: Activation(spec.Activation),
			Filters:    spec.Filters,
			KernelSize: spec.KernelSize,
			Stride:     spec.Stride,
			Padding:    Padding(spec.Padding),
			PoolSize:   spec.PoolSize,
			Units:      spec.Units,
			Rate:       spec.Rate,
		}
		switch l.Activation {
		case ActivationNone, ActivationReLU, ActivationSoftmax:
		default:
			return nil, fmt.Errorf("layer %q: unknown activation %q", l.Name, spec.Activation)
		}

		switch l.Kind {
		case LayerConv2D:
			if flattened {
				return nil, fmt.Errorf("layer %q: conv2d after flatten", l.Name)
			}
			if l.Filters <= 0 || l.KernelSize <= 0 {
				return nil, fmt.Errorf("layer %q: bad conv dims filters=%d kernel=%d", l.Name, l.Filters, l.KernelSize)
			}
			if l.Padding == "" {
				l.Padding = PaddingValid
			}
			if l.Padding != PaddingSame && l.Padding != PaddingValid {
				return nil, fmt.Errorf("layer %q: unknown padding %q", l.Name, spec.Padding)
			}
			if l.W, err = takeTensor(infos, payload, l.Name+".weight", []int{l.KernelSize, l.KernelSize, c, l.Filters}); err != nil {
				return nil, err
			}
			if l.B, err = takeTensor(infos, payload, l.Name+".bias", []int{l.Filters}); err != nil {
				return nil, err
			}
			oh, ow, _, _ := convOutDims(h, w, l.KernelSize, l.Stride, l.Padding)
			if oh <= 0 || ow <= 0 {
				return nil, fmt.Errorf("layer %q: output collapses to %dx%d", l.Name, oh, ow)
			}
			h, w, c = oh, ow, l.Filters
		case LayerMaxPool2D:
			if flattened {
				return nil, fmt.Errorf("layer %q: maxpool2d after flatten", l.Name)
			}
			if l.PoolSize <= 0 {
				return nil, fmt.Errorf("layer %q: bad pool size %d", l.Name, l.PoolSize)
			}
			oh, ow := poolOutDims(h, w, l.PoolSize, l.Stride)
			if oh <= 0 || ow <= 0 {
				return nil, fmt.Errorf("layer %q: output collapses to %dx%d", l.Name, oh, ow)
			}
			h, w = oh, ow
		case LayerFlatten:
			flat = h * w * c
			flattened = true
		case LayerDense:
			if !flattened {
				return nil, fmt.Errorf("layer %q: dense before flatten", l.Name)
			}
			if l.Units <= 0 {
				return nil, fmt.Errorf("layer %q: bad units %d", l.Name, l.Units)
			}
			if l.W, err = takeTensor(infos, payload, l.Name+".weight", []int{flat, l.Units}); err != nil {
				return nil, err
			}
			if l.B, err = takeTensor(infos, payload, l.Name+".bias", []int{l.Units}); err != nil {
				return nil, err
			}
			flat = l.Units
		case LayerDropout:
			// No weights, no shape change.
		default:
			return nil, fmt.Errorf("layer %q: unknown kind %q", l.Name, spec.Kind)
		}
		net.Layers = append(net.Layers, l)
	}

	if len(net.Labels) > 0 {
		if width := net.OutputWidth(); width != len(net.Labels) {
			return nil, fmt.Errorf("artifact lists %d classes but the output layer has %d units", len(net.Labels), width)
		}
	}
	return net, nil
}

func takeTensor(infos map[string]tensorInfo, payload []byte, name string, want []int) (*tensor.Dense, error) {
	info, ok := infos[name]
	if !ok {
		return nil, fmt.Errorf("missing tensor %q", name)
	}
	if info.DType != dtypeF32 {
		return nil, fmt.Errorf("tensor %q: unsupported dtype %q", name, info.DType)
	}
	if len(info.Shape) != len(want) {
		return nil, fmt.Errorf("tensor %q: shape %v, want %v", name, info.Shape, want)
	}
	size := 1
	for i, d := range info.Shape {
		if int(d) != want[i] {
			return nil, fmt.Errorf("tensor %q: shape %v, want %v", name, info.Shape, want)
		}
		size *= want[i]
	}
	begin, end := info.DataOffsets[0], info.DataOffsets[1]
	if begin > end || end > uint64(len(payload)) {
		return nil, fmt.Errorf("tensor %q: offsets [%d,%d] outside payload of %d bytes", name, begin, end, len(payload))
	}
	if end-begin != uint64(size*4) {
		return nil, fmt.Errorf("tensor %q: %d data bytes for %d float32s", name, end-begin, size)
	}
	buf := payload[begin:end]
	data := make([]float32, size)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return tensor.New(tensor.WithShape(want...), tensor.WithBacking(data)), nil
}

// Save writes the network as a safetensors artifact. Used to produce
// artifacts from training exports and small fixtures in tests.
func Save(path string, n *Network) error {
	arch := archSpec{
		Name:       n.Name,
		InputShape: n.InputShape,
		Classes:    n.Labels,
	}
	type weight struct {
		name string
		t    *tensor.Dense
	}
	var weights []weight
	for _, l := range n.Layers {
		arch.Layers = append(arch.Layers, layerSpec{
			Kind:       string(l.Kind),
			Name:       l.Name,
			Activation: string(l.Activation),
			Filters:    l.Filters,
			KernelSize: l.KernelSize,
			Stride:     l.Stride,
			Padding:    string(l.Padding),
			PoolSize:   l.PoolSize,
			Units:      l.Units,
			Rate:       l.Rate,
		})
		if l.W != nil {
			weights = append(weights, weight{l.Name + ".weight", l.W})
		}
		if l.B != nil {
			weights = append(weights, weight{l.Name + ".bias", l.B})
		}
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].name < weights[j].name })

	archJSON, err := json.Marshal(arch)
	if err != nil {
		return fmt.Errorf("marshal architecture: %w", err)
	}

	entries := make(map[string]any, len(weights)+1)
	entries[metadataKey] = map[string]string{archKey: string(archJSON)}
	var payload []byte
	for _, w := range weights {
		data := w.t.Data().([]float32)
		begin := uint64(len(payload))
		for _, v := range data {
			payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(v))
		}
		shape := make([]uint64, 0, len(w.t.Shape()))
		for _, d := range w.t.Shape() {
			shape = append(shape, uint64(d))
		}
		entries[w.name] = tensorInfo{
			DType:       dtypeF32,
			Shape:       shape,
			DataOffsets: [2]uint64{begin, uint64(len(payload))},
		}
	}
	header, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	out := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)
	return os.WriteFile(path, out, 0o644)
}
