package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tripcost/anomaly"
	"tripcost/ml"
	"tripcost/monitoring"
)

type fakeScorer struct {
	value float64
}

func (f *fakeScorer) Predict(row []float64) (float64, error) {
	return f.value, nil
}

func newTestHandler(t *testing.T, loader ml.LoaderFunc) http.Handler {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)
	cache := ml.NewModelCache("cost_model.json", ml.WithLoader(loader), ml.WithMetrics(metrics))
	scoring, err := ml.NewScoringService(cache, 8, nil, metrics)
	require.NoError(t, err)
	api := NewAPI(scoring, anomaly.NewMessages("en"), nil, metrics)
	return NewHandler(DefaultServerConfig(), api, registry, nil, metrics)
}

func fixedModel(value float64) ml.LoaderFunc {
	return func(string) (*ml.ModelArtifact, error) {
		return ml.NewModelArtifact(&fakeScorer{value: value}, ml.FeatureNames())
	}
}

func unavailableModel(string) (*ml.ModelArtifact, error) {
	return nil, ml.ErrNotFound
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload), w.Body.String())
	return payload
}

func TestHealthReflectsModelState(t *testing.T) {
	h := newTestHandler(t, fixedModel(250))

	w := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["model_ready"])

	w = do(t, h, http.MethodPost, "/predict_cost", `{"distancia_km": 100, "tipo_vehiculo": 1, "peajes_estimados": 12}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/health", "")
	payload := decode(t, w)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, true, payload["model_ready"])
}

func TestPredictCostRoundsEstimate(t *testing.T) {
	h := newTestHandler(t, fixedModel(1234.5678))

	w := do(t, h, http.MethodPost, "/predict_cost", `{"distancia_km": 420.5, "tipo_vehiculo": 3, "peajes_estimados": 48}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1234.57, decode(t, w)["costo_estimado"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPredictCostModelUnavailable(t *testing.T) {
	h := newTestHandler(t, unavailableModel)

	w := do(t, h, http.MethodPost, "/predict_cost", `{"distancia_km": 100, "tipo_vehiculo": 2, "peajes_estimados": 0}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ml.ErrModelUnavailable.Error(), decode(t, w)["error"])
}

func TestPredictCostValidation(t *testing.T) {
	h := newTestHandler(t, fixedModel(100))

	bodies := map[string]string{
		"malformed json":    `{"distancia_km":`,
		"missing distance":  `{"tipo_vehiculo": 1, "peajes_estimados": 0}`,
		"zero distance":     `{"distancia_km": 0, "tipo_vehiculo": 1, "peajes_estimados": 0}`,
		"negative distance": `{"distancia_km": -5, "tipo_vehiculo": 1, "peajes_estimados": 0}`,
		"unknown vehicle":   `{"distancia_km": 10, "tipo_vehiculo": 4, "peajes_estimados": 0}`,
		"fractional type":   `{"distancia_km": 10, "tipo_vehiculo": 1.5, "peajes_estimados": 0}`,
		"missing vehicle":   `{"distancia_km": 10, "peajes_estimados": 0}`,
		"negative tolls":    `{"distancia_km": 10, "tipo_vehiculo": 1, "peajes_estimados": -1}`,
		"missing tolls":     `{"distancia_km": 10, "tipo_vehiculo": 1}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/predict_cost", body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestDetectAnomaly(t *testing.T) {
	h := newTestHandler(t, unavailableModel)

	w := do(t, h, http.MethodPost, "/detect_anomaly", `{"costo_real": 115, "costo_estimado_ia": 100, "distancia_km": 300}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payload := decode(t, w)
	assert.Equal(t, true, payload["es_anomalia"])
	assert.Equal(t, 15.0, payload["desviacion_porcentual"])
	assert.Equal(t, "ALERTA: Gasto excede 15% de la prediccion (desviacion 15.00%)", payload["mensaje"])

	w = do(t, h, http.MethodPost, "/detect_anomaly", `{"costo_real": 50, "costo_estimado_ia": 100, "distancia_km": 300}`)
	require.Equal(t, http.StatusOK, w.Code)
	payload = decode(t, w)
	assert.Equal(t, false, payload["es_anomalia"])
	assert.Equal(t, "Gasto dentro de lo normal (desviacion -50.00%)", payload["mensaje"])
}

func TestDetectAnomalyValidation(t *testing.T) {
	h := newTestHandler(t, unavailableModel)

	for _, body := range []string{
		`{"costo_real": 0, "costo_estimado_ia": 100, "distancia_km": 300}`,
		`{"costo_real": 100, "costo_estimado_ia": 0, "distancia_km": 300}`,
		`{"costo_real": 100, "costo_estimado_ia": 100}`,
		`not json`,
	} {
		w := do(t, h, http.MethodPost, "/detect_anomaly", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, unavailableModel)

	req := httptest.NewRequest(http.MethodOptions, "/predict_cost", nil)
	req.Header.Set("Origin", "https://fleet.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://fleet.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, fixedModel(10))
	do(t, h, http.MethodPost, "/predict_cost", `{"distancia_km": 100, "tipo_vehiculo": 1, "peajes_estimados": 12}`)

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tripcost_predictions_total")
	assert.Contains(t, w.Body.String(), "tripcost_model_loads_total")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServerAddr(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Port = 9191
	s := NewServer(cfg, http.NotFoundHandler(), nil)
	assert.Equal(t, ":9191", s.Addr())
}

func TestArtifactOnDiskEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost_model.json")
	model := &ml.LinearRegression{Intercept: 80, Coefficients: []float64{0.1, 45, 1, 5.2}}
	require.NoError(t, ml.SaveArtifact(path, model, ml.FeatureNames()))

	h := newTestHandler(t, func(string) (*ml.ModelArtifact, error) {
		return ml.LoadArtifact(path)
	})
	w := do(t, h, http.MethodPost, "/predict_cost", `{"distancia_km": 300, "tipo_vehiculo": 1, "peajes_estimados": 36}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// 80 + 0.1*300 + 45*1 + 36 + 5.2*40 gallons
	assert.InDelta(t, 399.0, decode(t, w)["costo_estimado"], 1e-9)
}
