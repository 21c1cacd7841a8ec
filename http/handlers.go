package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"go.uber.org/zap"

	"tripcost/anomaly"
	"tripcost/ml"
	"tripcost/monitoring"
)

// API serves the cost estimation endpoints.
type API struct {
	scoring  *ml.ScoringService
	messages *anomaly.Messages
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

func NewAPI(scoring *ml.ScoringService, messages *anomaly.Messages, logger *zap.Logger, metrics *monitoring.Metrics) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if messages == nil {
		messages = anomaly.NewMessages("es")
	}
	return &API{
		scoring:  scoring,
		messages: messages,
		logger:   logger,
		metrics:  metrics,
	}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("POST /predict_cost", a.handlePredictCost)
	mux.HandleFunc("POST /detect_anomaly", a.handleDetectAnomaly)
}

type healthResponse struct {
	Status     string `json:"status"`
	ModelReady bool   `json:"model_ready"`
}

type predictRequest struct {
	DistanceKm     *float64 `json:"distancia_km"`
	VehicleType    *int     `json:"tipo_vehiculo"`
	EstimatedTolls *float64 `json:"peajes_estimados"`
}

type predictResponse struct {
	EstimatedCost float64 `json:"costo_estimado"`
}

type anomalyRequest struct {
	RealCost      *float64 `json:"costo_real"`
	EstimatedCost *float64 `json:"costo_estimado_ia"`
	DistanceKm    *float64 `json:"distancia_km"`
}

type anomalyResponse struct {
	IsAnomaly        bool    `json:"es_anomalia"`
	Message          string  `json:"mensaje"`
	DeviationPercent float64 `json:"desviacion_porcentual"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", ModelReady: a.scoring.Ready()})
}

func (a *API) handlePredictCost(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	trip, err := req.validate()
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Reject before scoring when no model can be loaded.
	if _, err := a.scoring.Model(); err != nil {
		a.logger.Warn("prediction rejected, model unavailable",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusServiceUnavailable, ml.ErrModelUnavailable.Error())
		return
	}

	cost, err := a.scoring.Estimate(trip)
	if err != nil {
		a.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	respondJSON(w, http.StatusOK, predictResponse{EstimatedCost: ml.RoundCost(cost)})
}

func (a *API) handleDetectAnomaly(w http.ResponseWriter, r *http.Request) {
	var req anomalyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result := anomaly.Evaluate(*req.RealCost, *req.EstimatedCost)
	a.metrics.RecordAnomalyCheck(result.IsAnomaly)
	if result.IsAnomaly {
		a.logger.Info("cost anomaly detected",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Float64("real_cost", *req.RealCost),
			zap.Float64("estimated_cost", *req.EstimatedCost),
			zap.Float64("deviation_percent", result.DeviationPercent),
		)
	}
	respondJSON(w, http.StatusOK, anomalyResponse{
		IsAnomaly:        result.IsAnomaly,
		Message:          a.messages.Format(result),
		DeviationPercent: math.Round(result.DeviationPercent*100) / 100,
	})
}

func (req predictRequest) validate() (ml.TripInput, error) {
	if err := positive("distancia_km", req.DistanceKm); err != nil {
		return ml.TripInput{}, err
	}
	if req.VehicleType == nil {
		return ml.TripInput{}, errors.New("tipo_vehiculo is required")
	}
	vehicle := ml.VehicleType(*req.VehicleType)
	if !vehicle.Valid() {
		return ml.TripInput{}, fmt.Errorf("tipo_vehiculo must be 1, 2 or 3, got %d", *req.VehicleType)
	}
	if req.EstimatedTolls == nil {
		return ml.TripInput{}, errors.New("peajes_estimados is required")
	}
	if tolls := *req.EstimatedTolls; tolls < 0 || math.IsInf(tolls, 0) || math.IsNaN(tolls) {
		return ml.TripInput{}, errors.New("peajes_estimados must be a non-negative number")
	}
	return ml.TripInput{
		DistanceKm:     *req.DistanceKm,
		VehicleType:    vehicle,
		EstimatedTolls: *req.EstimatedTolls,
	}, nil
}

func (req anomalyRequest) validate() error {
	if err := positive("costo_real", req.RealCost); err != nil {
		return err
	}
	if err := positive("costo_estimado_ia", req.EstimatedCost); err != nil {
		return err
	}
	return positive("distancia_km", req.DistanceKm)
}

func positive(field string, v *float64) error {
	if v == nil {
		return fmt.Errorf("%s is required", field)
	}
	if *v <= 0 || math.IsInf(*v, 0) || math.IsNaN(*v) {
		return fmt.Errorf("%s must be greater than 0", field)
	}
	return nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
