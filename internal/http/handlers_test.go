package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanworks/desal_backend/config"
	"github.com/oceanworks/desal_backend/internal/auth"
	"github.com/oceanworks/desal_backend/internal/logger"
	"github.com/oceanworks/desal_backend/internal/models"
	"github.com/oceanworks/desal_backend/internal/store"
	"github.com/oceanworks/desal_backend/internal/telemetry"
	"github.com/oceanworks/desal_backend/internal/valve"
	"github.com/oceanworks/desal_backend/internal/ws"
)

type testEnv struct {
	router     http.Handler
	store      *store.Store
	values     *telemetry.LatestValues
	controller *logger.Controller
	adminToken string
	userToken  string
	actuator   *httptest.Server
}

// fakeActuator serves the valve endpoints the relay talks to
func fakeActuator(mode, state string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /valve/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"mode": mode, "state": state})
	})
	mux.HandleFunc("POST /valve/mode", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /valve/control", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dataStore := store.NewStore(1000)
	for _, iv := range []models.LoggerInterval{
		{IntervalSeconds: 1, IntervalName: "1 second"},
		{IntervalSeconds: 60, IntervalName: "1 minute"},
	} {
		interval := iv
		require.NoError(t, dataStore.CreateInterval(&interval))
	}
	require.NoError(t, dataStore.UpsertSensorConfig(models.SensorConfig{
		SensorID: "H1", DisplayName: "Humidity 1", SensorType: models.SensorTypeHumidity,
		Unit: "%", IsEnabled: true, SortOrder: 1,
	}))

	authService := auth.NewService(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})

	adminHash, err := authService.HashPassword("admin-pass")
	require.NoError(t, err)
	admin := models.User{Username: "admin", Email: "admin@rig.local", PasswordHash: adminHash, Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, dataStore.CreateUser(&admin))

	userHash, err := authService.HashPassword("user-pass")
	require.NoError(t, err)
	user := models.User{Username: "worker", Email: "worker@rig.local", PasswordHash: userHash, Role: models.RoleUser, IsActive: true}
	require.NoError(t, dataStore.CreateUser(&user))

	actuator := fakeActuator("auto", "off")
	t.Cleanup(actuator.Close)

	values := telemetry.NewLatestValues(time.Minute)
	controller := logger.NewController(dataStore, values)
	t.Cleanup(controller.StopAll)
	relay := valve.NewRelay(config.ValveConfig{BaseURL: actuator.URL, Timeout: time.Second})

	hub := ws.NewHub()
	go hub.Run()

	handlers := NewHandlers(dataStore, values, controller, relay, authService, hub)
	router := SetupRoutes(handlers, authService, hub)

	adminToken, err := authService.IssueToken(&admin)
	require.NoError(t, err)
	userToken, err := authService.IssueToken(&user)
	require.NoError(t, err)

	return &testEnv{
		router:     router,
		store:      dataStore,
		values:     values,
		controller: controller,
		adminToken: adminToken,
		userToken:  userToken,
		actuator:   actuator,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "worker", "password": "user-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["token"])

	// password hash must never leak
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "worker", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/v1/readings/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTelemetryIngestAndLiveValues(t *testing.T) {
	env := newTestEnv(t)

	// the rig posts without a token
	rec := env.do(t, "POST", "/api/v1/telemetry", "", map[string]interface{}{
		"sensor_id": "H1", "value": 61.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/v1/telemetry/live", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	values := resp.Data.(map[string]interface{})
	assert.InDelta(t, 61.5, values["H1"], 0.001)
}

func TestTelemetryIngestRequiresSensorID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/telemetry", "", map[string]interface{}{"value": 1.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadingsQueryAndDelete(t *testing.T) {
	env := newTestEnv(t)

	for _, r := range []models.SensorReading{
		{SensorID: "H1", SensorType: models.SensorTypeHumidity, Value: 60, Unit: "%", Status: models.ReadingStatusActive, Timestamp: time.Now()},
		{SensorID: "T1", SensorType: models.SensorTypeAirTemp, Value: 21, Unit: "°C", Status: models.ReadingStatusActive, Timestamp: time.Now()},
	} {
		_, err := env.store.InsertReading(r)
		require.NoError(t, err)
	}

	rec := env.do(t, "GET", "/api/v1/readings/?types=humidity", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	readings := resp.Data.([]interface{})
	require.Len(t, readings, 1)

	rec = env.do(t, "GET", "/api/v1/readings/?types=bogus", env.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// filterless bulk delete is refused
	rec = env.do(t, "DELETE", "/api/v1/readings/", env.userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "DELETE", "/api/v1/readings/?all=true", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	count, err := env.store.ReadingCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDeleteReadingNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "DELETE", "/api/v1/readings/9999", env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSensorConfigLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "PUT", "/api/v1/sensors/", env.userToken, models.SensorConfig{
		SensorID: "WT1", SensorType: models.SensorTypeWaterTemp, IsEnabled: true, SortOrder: 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// defaults fill in unit and display name
	config, err := env.store.GetSensorConfig("WT1")
	require.NoError(t, err)
	assert.Equal(t, "°C", config.Unit)
	assert.Equal(t, "WT1", config.DisplayName)

	rec = env.do(t, "POST", "/api/v1/sensors/WT1/toggle", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	config, err = env.store.GetSensorConfig("WT1")
	require.NoError(t, err)
	assert.False(t, config.IsEnabled)

	rec = env.do(t, "POST", "/api/v1/sensors/nope/toggle", env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscoveredSensors(t *testing.T) {
	env := newTestEnv(t)

	env.values.Set("H1", 60) // already configured
	env.values.Set("WL7", 12.5)

	rec := env.do(t, "GET", "/api/v1/sensors/discovered", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	discovered := resp.Data.([]interface{})
	require.Len(t, discovered, 1)
	entry := discovered[0].(map[string]interface{})
	assert.Equal(t, "WL7", entry["sensor_id"])
	assert.Equal(t, "water_level", entry["suggested_type"])
}

func TestIntervalCatalogue(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/intervals/", env.userToken, models.LoggerInterval{
		IntervalSeconds: 300, IntervalName: "5 minutes",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// duplicate seconds rejected
	rec = env.do(t, "POST", "/api/v1/intervals/", env.userToken, models.LoggerInterval{
		IntervalSeconds: 300, IntervalName: "again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, "POST", "/api/v1/intervals/", env.userToken, models.LoggerInterval{IntervalSeconds: -5, IntervalName: "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoggerLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.values.Set("H1", 58.0)

	// interval not in the catalogue
	rec := env.do(t, "POST", "/api/v1/logger/start", env.userToken, map[string]interface{}{
		"humidity": "all", "interval_ms": 5000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// nothing selected
	rec = env.do(t, "POST", "/api/v1/logger/start", env.userToken, map[string]interface{}{
		"interval_ms": 1000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", "/api/v1/logger/start", env.userToken, map[string]interface{}{
		"humidity": "all", "interval_ms": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// double start conflicts
	rec = env.do(t, "POST", "/api/v1/logger/start", env.userToken, map[string]interface{}{
		"humidity": "all", "interval_ms": 1000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// reconfigure while running conflicts
	rec = env.do(t, "POST", "/api/v1/logger/config", env.userToken, map[string]interface{}{
		"interval_ms": 60000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, "GET", "/api/v1/logger/status", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	status := resp.Data.(map[string]interface{})
	assert.Equal(t, true, status["is_logging"])

	rec = env.do(t, "POST", "/api/v1/logger/stop", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeResponse(t, rec)
	status = resp.Data.(map[string]interface{})
	assert.Equal(t, false, status["is_logging"])
}

func TestLoggerAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.values.Set("H1", 58.0)

	rec := env.do(t, "POST", "/api/v1/logger/start", env.userToken, map[string]interface{}{
		"humidity": "all", "interval_ms": 60000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// plain users cannot see other sessions
	rec = env.do(t, "GET", "/api/v1/logger/all", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "GET", "/api/v1/logger/all", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	sessions := resp.Data.([]interface{})
	require.Len(t, sessions, 1)
	session := sessions[0].(map[string]interface{})
	assert.Equal(t, "worker", session["username"])

	rec = env.do(t, "POST", "/api/v1/logger/stop-all", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.controller.ListRunning())
}

func TestValveControlRejectedInAutoMode(t *testing.T) {
	env := newTestEnv(t)

	// refresh cached mode from the actuator
	rec := env.do(t, "GET", "/api/v1/valve/status", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/api/v1/valve/control", env.userToken, map[string]string{"state": "on"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestValveManualControl(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/valve/mode", env.userToken, map[string]string{"mode": "manual"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/api/v1/valve/control", env.userToken, map[string]string{"state": "on"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	status := resp.Data.(map[string]interface{})
	assert.Equal(t, "on", status["state"])
}

func TestValveRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/valve/mode", env.userToken, map[string]string{"mode": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", "/api/v1/valve/control", env.userToken, map[string]string{"state": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchemaLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/schemas/", env.adminToken, map[string]string{
		"file_name": "rig.svg", "svg_content": "<svg><rect/></svg>",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// uploads are admin only
	rec = env.do(t, "POST", "/api/v1/schemas/", env.userToken, map[string]string{
		"file_name": "rig2.svg", "svg_content": "<svg/>",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "GET", "/api/v1/schemas/active", env.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "POST", "/api/v1/schemas/1/activate", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/v1/schemas/active", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	schema := resp.Data.(map[string]interface{})
	assert.Equal(t, "rig.svg", schema["file_name"])
}

func TestSchemaRejectsNonSVG(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/v1/schemas/", env.adminToken, map[string]string{
		"file_name": "rig.svg", "svg_content": "<html>nope</html>",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserManagement(t *testing.T) {
	env := newTestEnv(t)

	// plain users cannot manage accounts
	rec := env.do(t, "GET", "/api/v1/users/", env.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "POST", "/api/v1/users/", env.adminToken, map[string]string{
		"username": "newbie", "email": "newbie@rig.local", "password": "long-enough",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	created, err := env.store.GetUserByUsername("newbie")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, created.Role)

	// short passwords rejected
	rec = env.do(t, "POST", "/api/v1/users/", env.adminToken, map[string]string{
		"username": "other", "email": "o@rig.local", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// duplicate username conflicts
	rec = env.do(t, "POST", "/api/v1/users/", env.adminToken, map[string]string{
		"username": "newbie", "email": "dup@rig.local", "password": "long-enough",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeactivatedUserCannotLogin(t *testing.T) {
	env := newTestEnv(t)

	worker, err := env.store.GetUserByUsername("worker")
	require.NoError(t, err)

	rec := env.do(t, "POST", "/api/v1/users/"+strconv.Itoa(worker.ID)+"/toggle", env.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "worker", "password": "user-pass",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.store.InsertReading(models.SensorReading{
		SensorID: "H1", SensorType: models.SensorTypeHumidity, Value: 60.5, Unit: "%",
		Status: models.ReadingStatusActive, Timestamp: time.Now(),
	})
	require.NoError(t, err)

	rec := env.do(t, "GET", "/api/v1/export/readings.csv", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "H1")
}

func TestSystemStats(t *testing.T) {
	env := newTestEnv(t)
	env.values.Set("H1", 60)

	rec := env.do(t, "GET", "/api/v1/stats", env.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	stats := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), stats["live_sensors"])
}
