package database

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/oceanworks/desal_backend/internal/models"
)

// CreateTables creates all tables for the rig monitoring system
func CreateTables(db *sql.DB) error {
	log.Println("Creating database tables...")

	// sensor_readings - rows appended by logging sessions
	sensorReadingsTable := `
	CREATE TABLE IF NOT EXISTS sensor_readings (
		id BIGSERIAL PRIMARY KEY,
		sensor_id VARCHAR(50) NOT NULL,
		sensor_type VARCHAR(50) NOT NULL CHECK (sensor_type IN
			('humidity', 'air_temperature', 'water_temperature', 'water_level', 'uncategorized')),
		value DOUBLE PRECISION NOT NULL,
		unit VARCHAR(20) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
		interval_seconds INTEGER,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`

	if _, err := db.Exec(sensorReadingsTable); err != nil {
		return fmt.Errorf("failed to create sensor_readings table: %w", err)
	}

	// sensor_configs - registry mapping sensor ids to display metadata
	sensorConfigsTable := `
	CREATE TABLE IF NOT EXISTS sensor_configs (
		sensor_id VARCHAR(50) PRIMARY KEY,
		display_name VARCHAR(100) NOT NULL,
		sensor_type VARCHAR(50) NOT NULL CHECK (sensor_type IN
			('humidity', 'air_temperature', 'water_temperature', 'water_level', 'uncategorized')),
		unit VARCHAR(20) NOT NULL DEFAULT '',
		is_enabled BOOLEAN NOT NULL DEFAULT true,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`

	if _, err := db.Exec(sensorConfigsTable); err != nil {
		return fmt.Errorf("failed to create sensor_configs table: %w", err)
	}

	// logger_intervals - global catalogue of selectable sampling periods
	loggerIntervalsTable := `
	CREATE TABLE IF NOT EXISTS logger_intervals (
		id SERIAL PRIMARY KEY,
		interval_seconds INTEGER UNIQUE NOT NULL CHECK (interval_seconds > 0),
		interval_name VARCHAR(50) NOT NULL
	);`

	if _, err := db.Exec(loggerIntervalsTable); err != nil {
		return fmt.Errorf("failed to create logger_intervals table: %w", err)
	}

	// users - dashboard accounts; active_interval_id is a weak reference
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'USER' CHECK (role IN ('ADMIN', 'USER')),
		is_active BOOLEAN NOT NULL DEFAULT true,
		active_interval_id INTEGER REFERENCES logger_intervals(id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`

	if _, err := db.Exec(usersTable); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	// schemas - uploaded SVG diagrams; at most one active row
	schemasTable := `
	CREATE TABLE IF NOT EXISTS schemas (
		id SERIAL PRIMARY KEY,
		file_name VARCHAR(255) NOT NULL,
		svg_content TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`

	if _, err := db.Exec(schemasTable); err != nil {
		return fmt.Errorf("failed to create schemas table: %w", err)
	}

	// Unique partial index enforces the single-active-schema invariant
	activeSchemaIndex := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_schemas_single_active
		ON schemas(is_active) WHERE is_active;`

	if _, err := db.Exec(activeSchemaIndex); err != nil {
		return fmt.Errorf("failed to create active schema index: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sensor_readings_timestamp ON sensor_readings(timestamp DESC);",
		"CREATE INDEX IF NOT EXISTS idx_sensor_readings_sensor_id ON sensor_readings(sensor_id);",
		"CREATE INDEX IF NOT EXISTS idx_sensor_readings_sensor_type ON sensor_readings(sensor_type);",
		"CREATE INDEX IF NOT EXISTS idx_sensor_configs_type_order ON sensor_configs(sensor_type, sort_order);",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
		}
	}

	if err := seedIntervals(db); err != nil {
		log.Printf("Warning: Failed to seed interval catalogue: %v", err)
	}

	log.Println("✅ Database tables created successfully")
	return nil
}

// seedIntervals inserts the default sampling periods on first run
func seedIntervals(db *sql.DB) error {
	for _, interval := range models.DefaultIntervals() {
		query := `
			INSERT INTO logger_intervals (interval_seconds, interval_name)
			VALUES ($1, $2)
			ON CONFLICT (interval_seconds) DO NOTHING`
		if _, err := db.Exec(query, interval.IntervalSeconds, interval.IntervalName); err != nil {
			return err
		}
	}
	return nil
}

// DropTables drops all tables (useful for testing)
func DropTables(db *sql.DB) error {
	log.Println("Dropping database tables...")

	tables := []string{
		"sensor_readings",
		"sensor_configs",
		"users",
		"logger_intervals",
		"schemas",
	}

	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	log.Println("✅ Database tables dropped successfully")
	return nil
}

// CheckTablesExist checks if all required tables exist
func CheckTablesExist(db *sql.DB) error {
	requiredTables := []string{
		"sensor_readings",
		"sensor_configs",
		"logger_intervals",
		"users",
		"schemas",
	}

	for _, table := range requiredTables {
		var exists bool
		query := `SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		);`

		err := db.QueryRow(query, table).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}

		if !exists {
			return fmt.Errorf("table %s does not exist", table)
		}
	}

	log.Println("✅ All required tables exist")
	return nil
}
