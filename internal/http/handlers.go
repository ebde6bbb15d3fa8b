package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oceanworks/desal_backend/internal/auth"
	"github.com/oceanworks/desal_backend/internal/export"
	"github.com/oceanworks/desal_backend/internal/logger"
	"github.com/oceanworks/desal_backend/internal/models"
	"github.com/oceanworks/desal_backend/internal/store"
	"github.com/oceanworks/desal_backend/internal/telemetry"
	"github.com/oceanworks/desal_backend/internal/valve"
	"github.com/oceanworks/desal_backend/internal/ws"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	store         store.DataStore
	values        *telemetry.LatestValues
	controller    *logger.Controller
	relay         *valve.Relay
	authService   *auth.Service
	hub           *ws.Hub
	exportService *export.ExportService
}

// NewHandlers creates a new handlers instance
func NewHandlers(dataStore store.DataStore, values *telemetry.LatestValues, controller *logger.Controller, relay *valve.Relay, authService *auth.Service, hub *ws.Hub) *Handlers {
	return &Handlers{
		store:         dataStore,
		values:        values,
		controller:    controller,
		relay:         relay,
		authService:   authService,
		hub:           hub,
		exportService: export.NewExportService(),
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// sendErrorResponse sends a standardized error response
func (h *Handlers) sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	response := APIResponse{
		Success: false,
		Error:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// sendJSONResponse sends a success response with optional message and data
func (h *Handlers) sendJSONResponse(w http.ResponseWriter, message string, data interface{}) {
	response := APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// Login authenticates a user and returns a bearer token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByUsername(request.Username)
	if err != nil {
		h.sendErrorResponse(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(user.PasswordHash, request.Password) {
		h.sendErrorResponse(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if !user.IsActive {
		h.sendErrorResponse(w, "Account is deactivated", http.StatusForbidden)
		return
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		h.sendErrorResponse(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "", map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// GetCurrentUser returns the profile of the authenticated user
func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendErrorResponse(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := h.store.GetUser(claims.UserID)
	if err != nil {
		h.sendErrorResponse(w, "User not found", http.StatusNotFound)
		return
	}

	h.sendJSONResponse(w, "", user)
}

// ---------------------------------------------------------------------------
// Telemetry
// ---------------------------------------------------------------------------

// IngestTelemetry handles sensor samples posted over HTTP instead of MQTT
func (h *Handlers) IngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var request struct {
		SensorID string  `json:"sensor_id"`
		Value    float64 `json:"value"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if request.SensorID == "" {
		h.sendErrorResponse(w, "sensor_id is required", http.StatusBadRequest)
		return
	}

	h.values.Set(request.SensorID, request.Value)
	h.hub.BroadcastSensorValue(request.SensorID, request.Value)

	h.sendJSONResponse(w, "Sample accepted", nil)
}

// GetLiveValues returns the latest known value for every recently seen sensor
func (h *Handlers) GetLiveValues(w http.ResponseWriter, r *http.Request) {
	h.sendJSONResponse(w, "", h.values.Snapshot())
}

// ---------------------------------------------------------------------------
// Sensor readings
// ---------------------------------------------------------------------------

// parseReadingFilter builds a reading filter from common query parameters
func (h *Handlers) parseReadingFilter(r *http.Request) (models.ReadingFilter, error) {
	filter := models.ReadingFilter{
		SensorID: r.URL.Query().Get("sensor_id"),
	}

	if typesStr := r.URL.Query().Get("types"); typesStr != "" {
		for _, t := range strings.Split(typesStr, ",") {
			sensorType := models.SensorType(strings.TrimSpace(t))
			if !models.ValidSensorType(sensorType) {
				return filter, fmt.Errorf("invalid sensor type %q", t)
			}
			filter.SensorTypes = append(filter.SensorTypes, sensorType)
		}
	}

	if startStr := r.URL.Query().Get("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return filter, errors.New("invalid start time format, use RFC3339")
		}
		filter.From = &start
	}

	if endStr := r.URL.Query().Get("end"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return filter, errors.New("invalid end time format, use RFC3339")
		}
		filter.To = &end
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	return filter, nil
}

// GetReadings returns stored sensor readings, newest first
func (h *Handlers) GetReadings(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseReadingFilter(r)
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if filter.Limit == 0 {
		filter.Limit = 100
	}

	readings, err := h.store.ListReadings(filter)
	if err != nil {
		h.sendErrorResponse(w, "Failed to query readings", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "", readings)
}

// DeleteReading removes a single reading by id
func (h *Handlers) DeleteReading(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.sendErrorResponse(w, "Invalid reading id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteReading(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "Reading not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to delete reading", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Reading deleted", nil)
}

// DeleteReadings removes readings matching the filter, or everything with all=true
func (h *Handlers) DeleteReadings(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		deleted, err := h.store.DeleteAllReadings()
		if err != nil {
			h.sendErrorResponse(w, "Failed to delete readings", http.StatusInternalServerError)
			return
		}
		h.sendJSONResponse(w, fmt.Sprintf("Deleted %d readings", deleted), map[string]int64{"deleted": deleted})
		return
	}

	filter, err := h.parseReadingFilter(r)
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if filter.SensorID == "" && len(filter.SensorTypes) == 0 && filter.From == nil && filter.To == nil {
		h.sendErrorResponse(w, "Refusing to delete without a filter. Pass all=true to wipe everything", http.StatusBadRequest)
		return
	}

	deleted, err := h.store.DeleteReadingsWhere(filter)
	if err != nil {
		h.sendErrorResponse(w, "Failed to delete readings", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, fmt.Sprintf("Deleted %d readings", deleted), map[string]int64{"deleted": deleted})
}

// ---------------------------------------------------------------------------
// Sensor configuration registry
// ---------------------------------------------------------------------------

// ListSensorConfigs returns every configured sensor ordered for display
func (h *Handlers) ListSensorConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.store.ListSensorConfigs()
	if err != nil {
		h.sendErrorResponse(w, "Failed to list sensor configurations", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "", configs)
}

// UpsertSensorConfig creates or replaces a sensor configuration
func (h *Handlers) UpsertSensorConfig(w http.ResponseWriter, r *http.Request) {
	var config models.SensorConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if config.Unit == "" {
		config.Unit = models.DefaultUnitForType(config.SensorType)
	}
	if config.DisplayName == "" {
		config.DisplayName = config.SensorID
	}

	if !config.Validate() {
		h.sendErrorResponse(w, "Invalid sensor configuration", http.StatusBadRequest)
		return
	}

	if err := h.store.UpsertSensorConfig(config); err != nil {
		h.sendErrorResponse(w, "Failed to save sensor configuration", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Sensor configuration saved", config)
}

// ToggleSensorConfig flips a sensor between enabled and disabled
func (h *Handlers) ToggleSensorConfig(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "sensorID")

	config, err := h.store.ToggleSensorConfig(sensorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "Sensor not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to toggle sensor", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Sensor toggled", config)
}

// DeleteSensorConfig removes a sensor from the registry. Historical readings stay
func (h *Handlers) DeleteSensorConfig(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "sensorID")

	if err := h.store.DeleteSensorConfig(sensorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "Sensor not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to delete sensor", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Sensor configuration deleted", nil)
}

// ReorderSensorConfig changes a sensor's position in the display order
func (h *Handlers) ReorderSensorConfig(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "sensorID")

	var request struct {
		SortOrder int `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.ReorderSensorConfig(sensorID, request.SortOrder); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "Sensor not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to reorder sensor", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Sensor order updated", nil)
}

// GetDiscoveredSensors lists sensors reporting over MQTT that are not configured yet
func (h *Handlers) GetDiscoveredSensors(w http.ResponseWriter, r *http.Request) {
	configs, err := h.store.ListSensorConfigs()
	if err != nil {
		h.sendErrorResponse(w, "Failed to list sensor configurations", http.StatusInternalServerError)
		return
	}

	configured := make(map[string]bool, len(configs))
	for _, c := range configs {
		configured[c.SensorID] = true
	}

	h.sendJSONResponse(w, "", h.values.Discovered(configured))
}

// ---------------------------------------------------------------------------
// Interval catalogue
// ---------------------------------------------------------------------------

// ListIntervals returns the logging interval catalogue
func (h *Handlers) ListIntervals(w http.ResponseWriter, r *http.Request) {
	intervals, err := h.store.ListIntervals()
	if err != nil {
		h.sendErrorResponse(w, "Failed to list intervals", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "", intervals)
}

// CreateInterval adds a new interval to the catalogue
func (h *Handlers) CreateInterval(w http.ResponseWriter, r *http.Request) {
	var interval models.LoggerInterval
	if err := json.NewDecoder(r.Body).Decode(&interval); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !interval.Validate() {
		h.sendErrorResponse(w, "Interval needs a positive interval_seconds and a name", http.StatusBadRequest)
		return
	}

	if err := h.store.CreateInterval(&interval); err != nil {
		h.sendErrorResponse(w, "Interval already exists or could not be saved: "+err.Error(), http.StatusConflict)
		return
	}

	h.sendJSONResponse(w, "Interval created", interval)
}

// DeleteInterval removes an interval. Users pointing at it are detached
func (h *Handlers) DeleteInterval(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid interval id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteInterval(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "Interval not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to delete interval", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Interval deleted", nil)
}

// ---------------------------------------------------------------------------
// Logging sessions
// ---------------------------------------------------------------------------

type loggerSelectorsRequest struct {
	Humidity         string `json:"humidity"`
	AirTemperature   string `json:"air_temperature"`
	WaterTemperature string `json:"water_temperature"`
}

func (req loggerSelectorsRequest) toSelectors() logger.Selectors {
	normalize := func(v string) logger.Selector {
		if v == string(logger.SelectorAll) {
			return logger.SelectorAll
		}
		return logger.SelectorNone
	}
	return logger.Selectors{
		Humidity:         normalize(req.Humidity),
		AirTemperature:   normalize(req.AirTemperature),
		WaterTemperature: normalize(req.WaterTemperature),
	}
}

// loggerErrorStatus maps controller errors to HTTP status codes
func loggerErrorStatus(err error) int {
	switch {
	case errors.Is(err, logger.ErrAlreadyLogging), errors.Is(err, logger.ErrReconfigureWhileRunning):
		return http.StatusConflict
	case errors.Is(err, logger.ErrInvalidInterval), errors.Is(err, logger.ErrNoSensorsSelected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// StartLogging begins a periodic logging session for the authenticated user
func (h *Handlers) StartLogging(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendErrorResponse(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var request struct {
		loggerSelectorsRequest
		IntervalMS int `json:"interval_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status, err := h.controller.Start(claims.UserID, request.toSelectors(), request.IntervalMS)
	if err != nil {
		h.sendErrorResponse(w, err.Error(), loggerErrorStatus(err))
		return
	}

	h.sendJSONResponse(w, "Logging started", status)
}

// StopLogging halts the authenticated user's logging session
func (h *Handlers) StopLogging(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendErrorResponse(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	h.controller.Stop(claims.UserID)
	h.sendJSONResponse(w, "Logging stopped", h.controller.Status(claims.UserID))
}

// ConfigureLogging updates interval or selectors for an idle session
func (h *Handlers) ConfigureLogging(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendErrorResponse(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var request struct {
		Selectors  *loggerSelectorsRequest `json:"selectors"`
		IntervalMS *int                    `json:"interval_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var selectors *logger.Selectors
	if request.Selectors != nil {
		s := request.Selectors.toSelectors()
		selectors = &s
	}

	if err := h.controller.Configure(claims.UserID, selectors, request.IntervalMS); err != nil {
		h.sendErrorResponse(w, err.Error(), loggerErrorStatus(err))
		return
	}

	h.sendJSONResponse(w, "Logging configuration updated", h.controller.Status(claims.UserID))
}

// GetLoggingStatus returns the session state of the authenticated user
func (h *Handlers) GetLoggingStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendErrorResponse(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	h.sendJSONResponse(w, "", h.controller.Status(claims.UserID))
}

// GetAllLoggingSessions lists every running session with the owner's username
func (h *Handlers) GetAllLoggingSessions(w http.ResponseWriter, r *http.Request) {
	type sessionView struct {
		logger.Status
		Username string `json:"username"`
	}

	running := h.controller.ListRunning()
	sessions := make([]sessionView, 0, len(running))
	for _, status := range running {
		view := sessionView{Status: status}
		if user, err := h.store.GetUser(status.UserID); err == nil {
			view.Username = user.Username
		}
		sessions = append(sessions, view)
	}

	h.sendJSONResponse(w, "", sessions)
}

// StopAllLogging halts every running session
func (h *Handlers) StopAllLogging(w http.ResponseWriter, r *http.Request) {
	h.controller.StopAll()
	h.sendJSONResponse(w, "All logging sessions stopped", nil)
}

// StopUserLogging halts one user's session by id
func (h *Handlers) StopUserLogging(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	h.controller.Stop(userID)
	h.sendJSONResponse(w, "Logging stopped", h.controller.Status(userID))
}

// ---------------------------------------------------------------------------
// Valve control
// ---------------------------------------------------------------------------

// GetValveStatus returns the valve state as last reported by the actuator
func (h *Handlers) GetValveStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.relay.Status()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err.Error(), Data: status})
		return
	}

	h.sendJSONResponse(w, "", status)
}

// SetValveMode switches the valve between automatic and manual operation
func (h *Handlers) SetValveMode(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	mode := models.ValveMode(request.Mode)
	if !models.ValidValveMode(mode) {
		h.sendErrorResponse(w, "Invalid mode. Use 'auto' or 'manual'", http.StatusBadRequest)
		return
	}

	status, err := h.relay.SetMode(mode)
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.hub.BroadcastValveStatus(status)
	h.sendJSONResponse(w, "Valve mode updated", status)
}

// ControlValve opens or closes the valve. Only allowed in manual mode
func (h *Handlers) ControlValve(w http.ResponseWriter, r *http.Request) {
	var request struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state := models.ValveState(request.State)
	if !models.ValidValveState(state) {
		h.sendErrorResponse(w, "Invalid state. Use 'on' or 'off'", http.StatusBadRequest)
		return
	}

	status, err := h.relay.Control(state)
	if err != nil {
		if errors.Is(err, valve.ErrWrongMode) {
			h.sendErrorResponse(w, err.Error(), http.StatusConflict)
			return
		}
		h.sendErrorResponse(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.hub.BroadcastValveStatus(status)
	h.sendJSONResponse(w, "Valve command sent", status)
}

// ---------------------------------------------------------------------------
// Schema SVG assets
// ---------------------------------------------------------------------------

// ListSchemas returns schema metadata, newest first, without SVG bodies
func (h *Handlers) ListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := h.store.ListSchemas()
	if err != nil {
		h.sendErrorResponse(w, "Failed to list schemas", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "", schemas)
}

// GetSchema returns one schema including its SVG content
func (h *Handlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid schema id", http.StatusBadRequest)
		return
	}

	schema, err := h.store.GetSchema(id)
	if err != nil {
		h.sendErrorResponse(w, "Schema not found", http.StatusNotFound)
		return
	}

	h.sendJSONResponse(w, "", schema)
}

// GetActiveSchema returns the schema currently shown on the dashboard
func (h *Handlers) GetActiveSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.store.GetActiveSchema()
	if err != nil {
		h.sendErrorResponse(w, "No active schema", http.StatusNotFound)
		return
	}

	h.sendJSONResponse(w, "", schema)
}

// UploadSchema stores a new rig schema SVG
func (h *Handlers) UploadSchema(w http.ResponseWriter, r *http.Request) {
	var schema models.Schema
	if err := json.NewDecoder(r.Body).Decode(&schema); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !schema.Validate() {
		h.sendErrorResponse(w, "Schema needs a file_name and SVG content", http.StatusBadRequest)
		return
	}

	if err := h.store.CreateSchema(&schema); err != nil {
		h.sendErrorResponse(w, "Failed to save schema", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Schema uploaded", schema)
}

// ActivateSchema marks one schema active and deactivates the rest
func (h *Handlers) ActivateSchema(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid schema id", http.StatusBadRequest)
		return
	}

	if err := h.store.ActivateSchema(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "Schema not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to activate schema", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Schema activated", nil)
}

// DeleteSchema removes a schema
func (h *Handlers) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid schema id", http.StatusBadRequest)
		return
	}

	if err := h.store.DeleteSchema(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "Schema not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to delete schema", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "Schema deleted", nil)
}

// ---------------------------------------------------------------------------
// User management (admin only)
// ---------------------------------------------------------------------------

// ListUsers returns all user accounts
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		h.sendErrorResponse(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "", users)
}

// CreateUser registers a new account
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(request.Password) < 8 {
		h.sendErrorResponse(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	hash, err := h.authService.HashPassword(request.Password)
	if err != nil {
		h.sendErrorResponse(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: hash,
		Role:         models.Role(request.Role),
		IsActive:     true,
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	if !user.Validate() {
		h.sendErrorResponse(w, "Invalid user. Username, email and a valid role are required", http.StatusBadRequest)
		return
	}

	if err := h.store.CreateUser(&user); err != nil {
		h.sendErrorResponse(w, "Username already taken or could not be saved: "+err.Error(), http.StatusConflict)
		return
	}

	h.sendJSONResponse(w, "User created", user)
}

// UpdateUser changes a user's email or role
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUser(id)
	if err != nil {
		h.sendErrorResponse(w, "User not found", http.StatusNotFound)
		return
	}

	var request struct {
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if request.Email != nil {
		user.Email = *request.Email
	}
	if request.Role != nil {
		user.Role = models.Role(*request.Role)
	}
	if request.Password != nil {
		if len(*request.Password) < 8 {
			h.sendErrorResponse(w, "Password must be at least 8 characters", http.StatusBadRequest)
			return
		}
		hash, err := h.authService.HashPassword(*request.Password)
		if err != nil {
			h.sendErrorResponse(w, "Failed to hash password", http.StatusInternalServerError)
			return
		}
		user.PasswordHash = hash
	}

	if !user.Validate() {
		h.sendErrorResponse(w, "Invalid user data", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateUser(user); err != nil {
		h.sendErrorResponse(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "User updated", user)
}

// ToggleUserActive flips an account between active and deactivated
func (h *Handlers) ToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUser(id)
	if err != nil {
		h.sendErrorResponse(w, "User not found", http.StatusNotFound)
		return
	}

	user.IsActive = !user.IsActive
	if err := h.store.UpdateUser(user); err != nil {
		h.sendErrorResponse(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	// A deactivated user should not keep logging in the background
	if !user.IsActive {
		h.controller.Stop(user.ID)
	}

	h.sendJSONResponse(w, "User updated", user)
}

// DeleteUser removes an account and stops its logging session
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.sendErrorResponse(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	h.controller.Stop(id)

	if err := h.store.DeleteUser(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendErrorResponse(w, "User not found", http.StatusNotFound)
			return
		}
		h.sendErrorResponse(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	h.sendJSONResponse(w, "User deleted", nil)
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

// exportReadings loads readings for the export endpoints with sane date defaults
func (h *Handlers) exportReadings(r *http.Request) ([]models.SensorReading, export.ExportMetadata, error) {
	filter, err := h.parseReadingFilter(r)
	if err != nil {
		return nil, export.ExportMetadata{}, err
	}

	// Default to the last 30 days when no range is given
	if filter.From == nil {
		start := time.Now().AddDate(0, 0, -30)
		filter.From = &start
	}
	if filter.To == nil {
		end := time.Now()
		filter.To = &end
	}

	readings, err := h.store.ListReadings(filter)
	if err != nil {
		return nil, export.ExportMetadata{}, errors.New("failed to query readings")
	}

	meta := export.ExportMetadata{
		GeneratedAt:   time.Now(),
		DateRange:     fmt.Sprintf("%s to %s", filter.From.Format("2006-01-02"), filter.To.Format("2006-01-02")),
		TotalReadings: len(readings),
	}
	return readings, meta, nil
}

// ExportReadingsExcel streams the reading history as an Excel workbook
func (h *Handlers) ExportReadingsExcel(w http.ResponseWriter, r *http.Request) {
	readings, meta, err := h.exportReadings(r)
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	excelFile, err := h.exportService.GenerateExcel(readings, meta)
	if err != nil {
		h.sendErrorResponse(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("desal_readings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	if err := excelFile.Write(w); err != nil {
		h.sendErrorResponse(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}
}

// ExportReadingsCSV streams the reading history as CSV
func (h *Handlers) ExportReadingsCSV(w http.ResponseWriter, r *http.Request) {
	readings, _, err := h.exportReadings(r)
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	records := h.exportService.GenerateCSV(readings)

	filename := fmt.Sprintf("desal_readings_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	csvWriter := csv.NewWriter(w)
	if err := h.exportService.WriteCSV(csvWriter, records); err != nil {
		h.sendErrorResponse(w, "Failed to write CSV data", http.StatusInternalServerError)
		return
	}
}

// ---------------------------------------------------------------------------
// System
// ---------------------------------------------------------------------------

// GetSystemStats returns a dashboard overview of the backend
func (h *Handlers) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	readingCount, err := h.store.ReadingCount()
	if err != nil {
		h.sendErrorResponse(w, "Failed to read stats", http.StatusInternalServerError)
		return
	}

	stats := map[string]interface{}{
		"total_readings":    readingCount,
		"live_sensors":      len(h.values.SeenIDs()),
		"running_sessions":  len(h.controller.ListRunning()),
		"connected_clients": h.hub.GetConnectedClientsCount(),
		"server_time":       time.Now(),
	}

	h.sendJSONResponse(w, "", stats)
}

// HealthCheck reports whether the backend and its store are up
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		h.sendErrorResponse(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}

	h.sendJSONResponse(w, "ok", nil)
}
