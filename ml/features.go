package ml

import (
	"fmt"
	"math"
)

// Feature names, in the column order the trainer fits them.
const (
	FeatureDistance    = "distancia_km"
	FeatureVehicleType = "tipo_vehiculo"
	FeatureTolls       = "peajes"
	FeatureFuel        = "consumo_galones"
)

// VehicleType identifies the vehicle class of a trip.
type VehicleType int

const (
	VehicleTruck   VehicleType = 1
	VehicleBus     VehicleType = 2
	VehicleTrailer VehicleType = 3
)

// DefaultEfficiency is used for vehicle types outside the known set.
const DefaultEfficiency = 6.0

// km per gallon
var efficiencyByType = map[VehicleType]float64{
	VehicleTruck:   7.5,
	VehicleBus:     5.5,
	VehicleTrailer: 3.8,
}

func (v VehicleType) Valid() bool {
	_, ok := efficiencyByType[v]
	return ok
}

func (v VehicleType) String() string {
	switch v {
	case VehicleTruck:
		return "truck"
	case VehicleBus:
		return "bus"
	case VehicleTrailer:
		return "trailer"
	default:
		return fmt.Sprintf("vehicle(%d)", int(v))
	}
}

// Efficiency returns the fuel efficiency in km/gallon for a vehicle type.
func Efficiency(v VehicleType) float64 {
	if rate, ok := efficiencyByType[v]; ok {
		return rate
	}
	return DefaultEfficiency
}

// EstimateFuel returns the gallons a trip is expected to consume, never negative.
func EstimateFuel(distanceKm float64, v VehicleType) float64 {
	return math.Max(distanceKm/Efficiency(v), 0.0)
}

// FeatureVector holds the derived inputs for one prediction.
type FeatureVector struct {
	DistanceKm  float64
	VehicleType float64
	Tolls       float64
	FuelGallons float64
}

// DeriveFeatures builds the feature vector for a trip.
func DeriveFeatures(distanceKm float64, vehicleType VehicleType, tolls float64) FeatureVector {
	return FeatureVector{
		DistanceKm:  distanceKm,
		VehicleType: float64(vehicleType),
		Tolls:       tolls,
		FuelGallons: EstimateFuel(distanceKm, vehicleType),
	}
}

// Get returns the value of a named feature.
func (f FeatureVector) Get(name string) (float64, error) {
	switch name {
	case FeatureDistance:
		return f.DistanceKm, nil
	case FeatureVehicleType:
		return f.VehicleType, nil
	case FeatureTolls:
		return f.Tolls, nil
	case FeatureFuel:
		return f.FuelGallons, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrMissingFeature, name)
	}
}

// Row orders the vector by names.
func (f FeatureVector) Row(names []string) ([]float64, error) {
	row := make([]float64, len(names))
	for i, name := range names {
		v, err := f.Get(name)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// FeatureNames returns the canonical feature order produced by DeriveFeatures.
func FeatureNames() []string {
	return []string{
		FeatureDistance,
		FeatureVehicleType,
		FeatureTolls,
		FeatureFuel,
	}
}

// checkFeatureNames reports the first name DeriveFeatures cannot supply.
func checkFeatureNames(names []string) error {
	var probe FeatureVector
	for _, name := range names {
		if _, err := probe.Get(name); err != nil {
			return err
		}
	}
	return nil
}
