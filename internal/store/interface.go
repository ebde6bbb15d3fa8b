package store

import (
	"errors"

	"github.com/oceanworks/desal_backend/internal/models"
)

// ErrNotFound is returned when a row targeted by id or key does not exist
var ErrNotFound = errors.New("not found")

// DataStore defines the interface for data storage operations.
// Implemented by the in-memory store (fallback) and the PostgreSQL store.
type DataStore interface {
	// Health check
	Ping() error

	// Sensor readings
	InsertReading(models.SensorReading) (int64, error)
	ListReadings(models.ReadingFilter) ([]models.SensorReading, error)
	DeleteReading(id int64) error
	DeleteReadingsWhere(models.ReadingFilter) (int64, error)
	DeleteAllReadings() (int64, error)
	ReadingCount() (int, error)

	// Sensor configuration registry
	UpsertSensorConfig(models.SensorConfig) error
	GetSensorConfig(sensorID string) (*models.SensorConfig, error)
	ListSensorConfigs() ([]models.SensorConfig, error)
	ListEnabledSensorsByType(models.SensorType) ([]models.SensorConfig, error)
	ToggleSensorConfig(sensorID string) (*models.SensorConfig, error)
	DeleteSensorConfig(sensorID string) error
	ReorderSensorConfig(sensorID string, newSortOrder int) error

	// Interval catalogue
	ListIntervals() ([]models.LoggerInterval, error)
	CreateInterval(*models.LoggerInterval) error
	DeleteInterval(id int) error

	// Users
	CreateUser(*models.User) error
	GetUser(id int) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	ListUsers() ([]models.User, error)
	UpdateUser(*models.User) error
	DeleteUser(id int) error
	SetUserActiveInterval(userID int, intervalID *int) error

	// Schema SVG assets
	CreateSchema(*models.Schema) error
	GetSchema(id int) (*models.Schema, error)
	GetActiveSchema() (*models.Schema, error)
	ListSchemas() ([]models.Schema, error)
	ActivateSchema(id int) error
	DeleteSchema(id int) error
}
