package ml

import (
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"tripcost/monitoring"
)

// TripInput is the raw request for one estimate.
type TripInput struct {
	DistanceKm     float64
	VehicleType    VehicleType
	EstimatedTolls float64
}

// EstimateCost scores a trip against model. The result is not rounded.
func EstimateCost(trip TripInput, model *ModelArtifact) (float64, error) {
	features := DeriveFeatures(trip.DistanceKm, trip.VehicleType, trip.EstimatedTolls)
	row, err := features.Row(model.featureNames)
	if err != nil {
		return 0, err
	}
	return model.estimator.Predict(row)
}

// RoundCost rounds a cost to two decimals for presentation.
func RoundCost(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScoringService resolves the cached model and scores trips against it.
type ScoringService struct {
	cache     *ModelCache
	estimates *lru.Cache[TripInput, float64]
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// NewScoringService builds a service over cache. cacheSize > 0 keeps that
// many recent estimates in memory.
func NewScoringService(cache *ModelCache, cacheSize int, logger *zap.Logger, metrics *monitoring.Metrics) (*ScoringService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ScoringService{
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
	if cacheSize > 0 {
		estimates, err := lru.New[TripInput, float64](cacheSize)
		if err != nil {
			return nil, err
		}
		s.estimates = estimates
	}
	return s, nil
}

// Ready reports whether a model is loaded.
func (s *ScoringService) Ready() bool {
	return s.cache.Ready()
}

// Model returns the loaded model, loading it if needed.
func (s *ScoringService) Model() (*ModelArtifact, error) {
	return s.cache.Get()
}

// Estimate returns the unrounded cost estimate for trip.
func (s *ScoringService) Estimate(trip TripInput) (float64, error) {
	started := time.Now()
	if s.estimates != nil {
		if v, ok := s.estimates.Get(trip); ok {
			s.metrics.RecordPrediction("cache", started, nil)
			return v, nil
		}
	}

	model, err := s.cache.Get()
	if err != nil {
		s.metrics.RecordPrediction("model", started, err)
		return 0, err
	}
	cost, err := EstimateCost(trip, model)
	s.metrics.RecordPrediction("model", started, err)
	if err != nil {
		s.logger.Error("scoring failed",
			zap.Float64("distance_km", trip.DistanceKm),
			zap.Stringer("vehicle_type", trip.VehicleType),
			zap.Error(err),
		)
		return 0, err
	}
	if s.estimates != nil {
		s.estimates.Add(trip, cost)
	}
	return cost, nil
}
