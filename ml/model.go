package ml

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("model artifact not found")
	ErrMalformedArtifact = errors.New("malformed model artifact")
	ErrMissingFeature    = errors.New("missing feature")
	ErrModelUnavailable  = errors.New("model unavailable")
)

// Scorer is anything that turns one ordered feature row into a scalar.
type Scorer interface {
	Predict(row []float64) (float64, error)
}

// ModelArtifact pairs a fitted estimator with the feature order it expects.
// It is shared read-only by every request once loaded.
type ModelArtifact struct {
	estimator    Scorer
	featureNames []string
}

func NewModelArtifact(estimator Scorer, featureNames []string) (*ModelArtifact, error) {
	if estimator == nil {
		return nil, fmt.Errorf("%w: estimator is missing", ErrMalformedArtifact)
	}
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("%w: feature names are missing", ErrMalformedArtifact)
	}
	if err := checkFeatureNames(featureNames); err != nil {
		return nil, err
	}
	names := make([]string, len(featureNames))
	copy(names, featureNames)
	return &ModelArtifact{estimator: estimator, featureNames: names}, nil
}

func (m *ModelArtifact) Estimator() Scorer {
	return m.estimator
}

// FeatureNames returns a copy of the declared feature order.
func (m *ModelArtifact) FeatureNames() []string {
	names := make([]string, len(m.featureNames))
	copy(names, m.featureNames)
	return names
}
