package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oceanworks/desal_backend/config"
	"github.com/oceanworks/desal_backend/internal/auth"
	"github.com/oceanworks/desal_backend/internal/database"
	httphandlers "github.com/oceanworks/desal_backend/internal/http"
	"github.com/oceanworks/desal_backend/internal/logger"
	"github.com/oceanworks/desal_backend/internal/mqtt"
	"github.com/oceanworks/desal_backend/internal/store"
	"github.com/oceanworks/desal_backend/internal/telemetry"
	"github.com/oceanworks/desal_backend/internal/valve"
	"github.com/oceanworks/desal_backend/internal/ws"
)

func main() {
	log.Println("🌊 Starting Desalination Rig Dashboard Backend...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found: %v", err)
	} else {
		log.Println("✅ Loaded .env file")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Loaded configuration: Server port=%s, DB host=%s",
		cfg.Server.Port, cfg.Database.Host)

	// Initialize data store with PostgreSQL or fallback to in-memory
	var dataStore store.DataStore

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Printf("⚠️  Warning: Failed to connect to database: %v", err)
		log.Println("📱 Falling back to in-memory storage")
		dataStore = store.NewStore(10000)
		log.Println("💾 Initialized in-memory data store")
	} else {
		log.Println("✅ Connected to PostgreSQL database")

		if err := database.CreateTables(db.DB); err != nil {
			log.Fatalf("❌ Failed to run migrations: %v", err)
		}

		dataStore = database.NewDatabaseStore(db.DB)
		log.Println("💾 Initialized PostgreSQL data store")
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	go wsHub.Run()
	log.Println("🔌 Started WebSocket hub")

	// Latest-value cache fed by telemetry, read by the logging sessions
	liveValues := telemetry.NewLatestValues(cfg.Logger.SampleTTL)

	// Initialize MQTT ingestion (skip if no broker URL configured)
	var mqttClient *mqtt.Client
	if cfg.MQTT.BrokerURL != "" {
		log.Println("📡 Attempting to connect to MQTT broker...")
		client := mqtt.NewClient(cfg.MQTT)
		client.SetSampleHandler(func(sample *mqtt.Sample) {
			liveValues.Set(sample.SensorID, sample.Value)
			wsHub.BroadcastSensorValue(sample.SensorID, sample.Value)
		})
		client.SetErrorHandler(func(err error) {
			log.Printf("⚠️  MQTT: %v", err)
		})

		if err := client.Connect(); err != nil {
			log.Printf("⚠️  Warning: Failed to connect to MQTT broker: %v", err)
			log.Println("📡 Continuing without MQTT support")
		} else {
			if err := client.SubscribeToSensorValues(); err != nil {
				log.Printf("⚠️  Warning: Failed to subscribe to sensor topics: %v", err)
			}
			log.Printf("📡 MQTT client connected - Broker: %s", cfg.MQTT.BrokerURL)
			mqttClient = client
			defer mqttClient.Disconnect()
		}
	} else {
		log.Println("📡 MQTT broker not configured, skipping MQTT initialization")
	}

	// Per-user logging session controller
	controller := logger.NewController(dataStore, liveValues)
	controller.OnReading = wsHub.BroadcastLoggedReading
	log.Println("📝 Initialized logging session controller")

	// Valve relay towards the rig's actuator
	relay := valve.NewRelay(cfg.Valve)
	log.Printf("🔧 Valve relay targeting %s", cfg.Valve.BaseURL)

	// Auth service for login tokens
	authService := auth.NewService(cfg.Auth)

	// Setup HTTP routes
	handlers := httphandlers.NewHandlers(dataStore, liveValues, controller, relay, authService, wsHub)
	router := httphandlers.SetupRoutes(handlers, authService, wsHub)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Printf("🚀 Starting HTTP server on port %s", cfg.Server.Port)
		log.Println("📡 API endpoints available:")
		log.Println("  POST /api/v1/auth/login - Login")
		log.Println("  GET /api/v1/auth/me - Current user profile")
		log.Println("  GET /api/v1/stats - System statistics")
		log.Println("  POST /api/v1/telemetry - Ingest sensor sample (rig firmware)")
		log.Println("  GET /api/v1/telemetry/live - Latest live sensor values")
		log.Println("  GET /api/v1/readings - Query stored readings")
		log.Println("  DELETE /api/v1/readings - Delete readings by filter")
		log.Println("  GET /api/v1/sensors - Sensor configuration registry")
		log.Println("  GET /api/v1/sensors/discovered - Unconfigured reporting sensors")
		log.Println("  GET /api/v1/intervals - Logging interval catalogue")
		log.Println("  POST /api/v1/logger/start - Start logging session")
		log.Println("  POST /api/v1/logger/stop - Stop logging session")
		log.Println("  GET /api/v1/logger/status - Logging session status")
		log.Println("  GET /api/v1/valve/status - Valve status")
		log.Println("  POST /api/v1/valve/mode - Switch valve auto/manual")
		log.Println("  POST /api/v1/valve/control - Open/close valve (manual mode)")
		log.Println("  GET /api/v1/schemas/active - Active rig schema SVG")
		log.Println("  GET /api/v1/export/readings.xlsx - Export readings to Excel")
		log.Println("  GET /api/v1/export/readings.csv - Export readings to CSV")
		log.Println("  WS /ws - WebSocket for real-time updates")
		log.Printf("🌐 Server running at http://localhost:%s", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ HTTP server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Stop all logging sessions so no insert races the store teardown
	controller.StopAll()

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server shutdown complete")
}
