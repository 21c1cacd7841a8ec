package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const ModelTypeLinearRegression = "linear_regression"

type artifactFile struct {
	Model    *modelPayload `json:"model"`
	Features []string      `json:"features"`
}

type modelPayload struct {
	Type         string    `json:"type"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadArtifact reads a model artifact from disk and checks its shape.
func LoadArtifact(path string) (*ModelArtifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	var file artifactFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	if file.Model == nil {
		return nil, fmt.Errorf("%w: estimator is missing", ErrMalformedArtifact)
	}
	if len(file.Features) == 0 {
		return nil, fmt.Errorf("%w: feature names are missing", ErrMalformedArtifact)
	}

	estimator, err := buildEstimator(file.Model, len(file.Features))
	if err != nil {
		return nil, err
	}
	return NewModelArtifact(estimator, file.Features)
}

func buildEstimator(m *modelPayload, width int) (Scorer, error) {
	switch m.Type {
	case ModelTypeLinearRegression:
		if len(m.Coefficients) != width {
			return nil, fmt.Errorf("%w: %d coefficients for %d features", ErrMalformedArtifact, len(m.Coefficients), width)
		}
		return &LinearRegression{Intercept: m.Intercept, Coefficients: m.Coefficients}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrMalformedArtifact, m.Type)
	}
}

// SaveArtifact writes a trained model and its feature order to path.
func SaveArtifact(path string, model *LinearRegression, features []string) error {
	if model == nil || len(model.Coefficients) == 0 {
		return errors.New("model not trained")
	}
	if len(features) != len(model.Coefficients) {
		return fmt.Errorf("%d features for %d coefficients", len(features), len(model.Coefficients))
	}
	payload, err := json.MarshalIndent(artifactFile{
		Model: &modelPayload{
			Type:         ModelTypeLinearRegression,
			Intercept:    model.Intercept,
			Coefficients: model.Coefficients,
		},
		Features: features,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
