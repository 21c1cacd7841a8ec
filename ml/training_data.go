package ml

import (
	"errors"
	"math"
	"math/rand"
)

const (
	fuelPricePerGallon = 5.2
	tollPerSegment     = 12.0
	kmPerTollSegment   = 120.0
)

var maintenanceByType = map[VehicleType]float64{
	VehicleTruck:   80.0,
	VehicleBus:     120.0,
	VehicleTrailer: 180.0,
}

// TripSample is one observed or simulated trip with its realized cost.
type TripSample struct {
	DistanceKm  float64
	VehicleType VehicleType
	FuelGallons float64
	Tolls       float64
	TotalCost   float64
}

// GenerateDataset simulates n trips: fuel and tolls follow distance with
// noise, and the total cost adds per-type maintenance plus operating noise.
func GenerateDataset(n int, seed int64) ([]TripSample, error) {
	if n <= 0 {
		return nil, errors.New("sample count must be positive")
	}
	rnd := rand.New(rand.NewSource(seed))

	samples := make([]TripSample, n)
	for i := range samples {
		distance := 50 + rnd.Float64()*750
		vehicle := VehicleType(1 + rnd.Intn(3))

		fuel := math.Max(distance/Efficiency(vehicle)+rnd.NormFloat64()*1.5, 0)
		tolls := math.Max(math.Ceil(distance/kmPerTollSegment)*tollPerSegment+rnd.NormFloat64()*1.0, 0)
		noise := rnd.NormFloat64() * 35.0

		samples[i] = TripSample{
			DistanceKm:  distance,
			VehicleType: vehicle,
			FuelGallons: fuel,
			Tolls:       tolls,
			TotalCost:   fuel*fuelPricePerGallon + tolls + maintenanceByType[vehicle] + noise,
		}
	}
	return samples, nil
}

// TrainingMatrix lays samples out in FeatureNames order.
func TrainingMatrix(samples []TripSample) ([][]float64, []float64) {
	features := make([][]float64, len(samples))
	targets := make([]float64, len(samples))
	for i, s := range samples {
		features[i] = []float64{s.DistanceKm, float64(s.VehicleType), s.Tolls, s.FuelGallons}
		targets[i] = s.TotalCost
	}
	return features, targets
}

// EvaluateRegression returns the coefficient of determination and mean absolute error.
func EvaluateRegression(model Scorer, features [][]float64, targets []float64) (r2, mae float64, err error) {
	if len(features) == 0 || len(features) != len(targets) {
		return 0, 0, errors.New("features and targets size mismatch")
	}

	var mean float64
	for _, y := range targets {
		mean += y
	}
	mean /= float64(len(targets))

	var ssRes, ssTot, absErr float64
	for i, row := range features {
		pred, err := model.Predict(row)
		if err != nil {
			return 0, 0, err
		}
		diff := targets[i] - pred
		ssRes += diff * diff
		ssTot += (targets[i] - mean) * (targets[i] - mean)
		absErr += math.Abs(diff)
	}
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return r2, absErr / float64(len(targets)), nil
}

// SplitDataset holds out the trailing testRatio share of samples.
func SplitDataset(samples []TripSample, testRatio float64) (train, test []TripSample) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	split := int(math.Round(float64(len(samples)) * (1 - testRatio)))
	return samples[:split], samples[split:]
}
