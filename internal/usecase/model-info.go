package usecase

import (
	"fmt"

	"github.com/kush-rc/brain-tumor-detection/internal/classifier"
	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/neural"
)

// ModelSummary describes the loaded network for the introspection endpoint.
type ModelSummary struct {
	Name         string                `json:"name"`
	ArtifactPath string                `json:"artifact_path"`
	InputShape   [3]int                `json:"input_shape"`
	Classes      []string              `json:"classes"`
	Params       int                   `json:"params"`
	Layers       []neural.LayerSummary `json:"layers"`
	ConvLayers   []string              `json:"conv_layers"`
}

// ModelInfoUseCase answers questions about the model and the class table.
type ModelInfoUseCase struct {
	holder *classifier.Holder
}

func NewModelInfoUseCase(holder *classifier.Holder) *ModelInfoUseCase {
	return &ModelInfoUseCase{holder: holder}
}

// Summary loads the model if needed and reports its layer table.
func (uc *ModelInfoUseCase) Summary() (*ModelSummary, error) {
	net, err := uc.holder.Get()
	if err != nil {
		return nil, err
	}
	layers, err := net.Summary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelInvalid, err)
	}

	var convNames []string
	for _, l := range net.Layers {
		if l.Kind == neural.LayerConv2D {
			convNames = append(convNames, l.Name)
		}
	}

	return &ModelSummary{
		Name:         net.Name,
		ArtifactPath: uc.holder.Path(),
		InputShape:   net.InputShape,
		Classes:      domain.ClassNames[:],
		Params:       net.ParamCount(),
		Layers:       layers,
		ConvLayers:   convNames,
	}, nil
}

// Loaded reports holder state without forcing a load.
func (uc *ModelInfoUseCase) Loaded() bool {
	return uc.holder.Loaded()
}

// ConfidenceBand maps a confidence level to its lower score bound.
type ConfidenceBand struct {
	Level domain.ConfidenceLevel `json:"level"`
	Min   float64                `json:"min"`
}

// ClassCatalog is the fixed class table plus the confidence bands used to
// phrase results.
type ClassCatalog struct {
	Classes         []domain.ClassInfo `json:"classes"`
	ConfidenceBands []ConfidenceBand   `json:"confidence_bands"`
}

func (uc *ModelInfoUseCase) Classes() *ClassCatalog {
	return &ClassCatalog{
		Classes: domain.ClassCatalog(),
		ConfidenceBands: []ConfidenceBand{
			{Level: domain.ConfidenceHigh, Min: 0.9},
			{Level: domain.ConfidenceGood, Min: 0.75},
			{Level: domain.ConfidenceModerate, Min: 0.6},
			{Level: domain.ConfidenceLow, Min: 0},
		},
	}
}
