package neural

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifact_RoundTripPreservesBehavior(t *testing.T) {
	net := testStack(t)
	net.Labels = []string{"Glioma", "Meningioma", "No Tumor", "Pituitary"}
	path := filepath.Join(t.TempDir(), "stack.safetensors")
	require.NoError(t, Save(path, net))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, net.Name, loaded.Name)
	assert.Equal(t, net.InputShape, loaded.InputShape)
	assert.Equal(t, net.Labels, loaded.Labels)
	require.Len(t, loaded.Layers, len(net.Layers))
	for i, l := range loaded.Layers {
		assert.Equal(t, net.Layers[i].Kind, l.Kind, "layer %d", i)
		assert.Equal(t, net.Layers[i].Name, l.Name, "layer %d", i)
		assert.Equal(t, net.Layers[i].Activation, l.Activation, "layer %d", i)
	}

	// The loaded network must produce the exact same scores.
	x := input4(t, 1, 8, 8, 1, func(i int) float32 { return float32(i%9) / 9 })
	want, err := net.Forward(x)
	require.NoError(t, err)
	got, err := loaded.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, want.Data().([]float32), got.Data().([]float32))
}

func TestArtifact_LoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.safetensors"))
	assert.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestArtifact_LoadTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.safetensors")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "truncated")
}

func TestArtifact_LoadImplausibleHeaderLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.safetensors")
	buf := binary.LittleEndian.AppendUint64(nil, 1<<40)
	require.NoError(t, os.WriteFile(path, append(buf, 0, 0, 0, 0), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "header length")
}

func writeHeaderOnly(t *testing.T, arch archSpec) string {
	t.Helper()
	archJSON, err := json.Marshal(arch)
	require.NoError(t, err)
	header, err := json.Marshal(map[string]any{
		metadataKey: map[string]string{archKey: string(archJSON)},
	})
	require.NoError(t, err)
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
	out = append(out, header...)
	path := filepath.Join(t.TempDir(), "crafted.safetensors")
	require.NoError(t, os.WriteFile(path, out, 0o644))
	return path
}

func TestArtifact_LoadMissingWeightTensor(t *testing.T) {
	path := writeHeaderOnly(t, archSpec{
		Name:       "m",
		InputShape: [3]int{2, 2, 1},
		Layers: []layerSpec{
			{Kind: "flatten", Name: "flatten"},
			{Kind: "dense", Name: "out", Units: 2, Activation: "softmax"},
		},
	})

	_, err := Load(path)
	assert.ErrorContains(t, err, `missing tensor "out.weight"`)
}

func TestArtifact_LoadUnknownLayerKind(t *testing.T) {
	path := writeHeaderOnly(t, archSpec{
		Name:       "m",
		InputShape: [3]int{2, 2, 1},
		Layers:     []layerSpec{{Kind: "gru", Name: "gru_1"}},
	})

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown kind")
}

func TestArtifact_LoadNoArchitecture(t *testing.T) {
	header := []byte(`{}`)
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
	out = append(out, header...)
	path := filepath.Join(t.TempDir(), "noarch.safetensors")
	require.NoError(t, os.WriteFile(path, out, 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "no architecture metadata")
}

func TestArtifact_LoadLabelWidthMismatch(t *testing.T) {
	net := testStack(t)
	net.Labels = []string{"a", "b", "c"} // output layer has 4 units
	path := filepath.Join(t.TempDir(), "mismatch.safetensors")
	require.NoError(t, Save(path, net))

	_, err := Load(path)
	assert.ErrorContains(t, err, "output layer has 4 units")
}

func TestArtifact_LoadDenseBeforeFlatten(t *testing.T) {
	path := writeHeaderOnly(t, archSpec{
		Name:       "m",
		InputShape: [3]int{2, 2, 1},
		Layers:     []layerSpec{{Kind: "dense", Name: "out", Units: 2}},
	})

	_, err := Load(path)
	assert.ErrorContains(t, err, "dense before flatten")
}
