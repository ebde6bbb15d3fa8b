package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/oceanworks/desal_backend/internal/auth"
	"github.com/oceanworks/desal_backend/internal/ws"
)

// SetupRoutes configures all HTTP routes for the desalination rig API
func SetupRoutes(handlers *Handlers, authService *auth.Service, wsHub *ws.Hub) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // In production, specify allowed origins
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Get("/health", handlers.HealthCheck)
		r.Post("/auth/login", handlers.Login)

		// Rig firmware pushes samples here; the rig has no user account
		r.Post("/telemetry", handlers.IngestTelemetry)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authService.Authenticator)

			r.Get("/auth/me", handlers.GetCurrentUser)

			// System stats
			r.Get("/stats", handlers.GetSystemStats)

			// Live sensor values
			r.Get("/telemetry/live", handlers.GetLiveValues)

			// Stored readings
			r.Route("/readings", func(r chi.Router) {
				r.Get("/", handlers.GetReadings)
				r.Delete("/", handlers.DeleteReadings)
				r.Delete("/{id}", handlers.DeleteReading)
			})

			// Sensor configuration registry
			r.Route("/sensors", func(r chi.Router) {
				r.Get("/", handlers.ListSensorConfigs)
				r.Put("/", handlers.UpsertSensorConfig)
				r.Get("/discovered", handlers.GetDiscoveredSensors)
				r.Post("/{sensorID}/toggle", handlers.ToggleSensorConfig)
				r.Post("/{sensorID}/reorder", handlers.ReorderSensorConfig)
				r.Delete("/{sensorID}", handlers.DeleteSensorConfig)
			})

			// Interval catalogue
			r.Route("/intervals", func(r chi.Router) {
				r.Get("/", handlers.ListIntervals)
				r.Post("/", handlers.CreateInterval)
				r.Delete("/{id}", handlers.DeleteInterval)
			})

			// Per-user logging sessions
			r.Route("/logger", func(r chi.Router) {
				r.Post("/start", handlers.StartLogging)
				r.Post("/stop", handlers.StopLogging)
				r.Post("/config", handlers.ConfigureLogging)
				r.Get("/status", handlers.GetLoggingStatus)

				// Operator oversight
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireAdmin)
					r.Get("/all", handlers.GetAllLoggingSessions)
					r.Post("/stop-all", handlers.StopAllLogging)
					r.Post("/stop/{userID}", handlers.StopUserLogging)
				})
			})

			// Valve control
			r.Route("/valve", func(r chi.Router) {
				r.Get("/status", handlers.GetValveStatus)
				r.Post("/mode", handlers.SetValveMode)
				r.Post("/control", handlers.ControlValve)
			})

			// Rig schema SVGs
			r.Route("/schemas", func(r chi.Router) {
				r.Get("/", handlers.ListSchemas)
				r.Get("/active", handlers.GetActiveSchema)
				r.Get("/{id}", handlers.GetSchema)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireAdmin)
					r.Post("/", handlers.UploadSchema)
					r.Post("/{id}/activate", handlers.ActivateSchema)
					r.Delete("/{id}", handlers.DeleteSchema)
				})
			})

			// User management
			r.Route("/users", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/", handlers.ListUsers)
				r.Post("/", handlers.CreateUser)
				r.Put("/{id}", handlers.UpdateUser)
				r.Post("/{id}/toggle", handlers.ToggleUserActive)
				r.Delete("/{id}", handlers.DeleteUser)
			})

			// Export routes for data history
			r.Route("/export", func(r chi.Router) {
				r.Get("/readings.xlsx", handlers.ExportReadingsExcel)
				r.Get("/readings.csv", handlers.ExportReadingsCSV)
			})
		})
	})

	// WebSocket route for real-time updates
	r.HandleFunc("/ws", wsHub.HandleWebSocket)

	return r
}
