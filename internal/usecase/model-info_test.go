package usecase

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kush-rc/brain-tumor-detection/internal/classifier"
	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/testutil"
)

func TestModelInfoUseCase_Summary(t *testing.T) {
	holder := classifier.NewHolder(testutil.WriteFixtureModel(t), "")
	uc := NewModelInfoUseCase(holder)

	assert.False(t, uc.Loaded())

	sum, err := uc.Summary()
	require.NoError(t, err)

	assert.True(t, uc.Loaded())
	assert.Equal(t, "brain-tumor-cnn-test", sum.Name)
	assert.NotEmpty(t, sum.ArtifactPath)
	assert.Equal(t, [3]int{8, 8, 3}, sum.InputShape)
	assert.Equal(t, domain.ClassNames[:], sum.Classes)
	assert.Equal(t, []string{"conv2d"}, sum.ConvLayers)
	require.Len(t, sum.Layers, 4)
	assert.Equal(t, []int{8, 8, 2}, sum.Layers[0].OutputShape)
	assert.Equal(t, []int{4}, sum.Layers[3].OutputShape)
	assert.Equal(t, 1*1*3*2+2+32*4+4, sum.Params)
}

func TestModelInfoUseCase_SummaryModelMissing(t *testing.T) {
	holder := classifier.NewHolder(filepath.Join(t.TempDir(), "nope.safetensors"), "")
	uc := NewModelInfoUseCase(holder)

	_, err := uc.Summary()
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
	assert.False(t, uc.Loaded())
}

func TestModelInfoUseCase_Classes(t *testing.T) {
	uc := NewModelInfoUseCase(nil)

	cat := uc.Classes()
	require.Len(t, cat.Classes, domain.NumClasses)
	assert.Equal(t, "Glioma", cat.Classes[0].Name)
	assert.Equal(t, "No Tumor", cat.Classes[2].Name)
	assert.NotEmpty(t, cat.Classes[1].Description)

	require.Len(t, cat.ConfidenceBands, 4)
	assert.Equal(t, domain.ConfidenceHigh, cat.ConfidenceBands[0].Level)
	assert.Equal(t, 0.9, cat.ConfidenceBands[0].Min)
}
