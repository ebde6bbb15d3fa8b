package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/oceanworks/desal_backend/internal/models"
	"github.com/oceanworks/desal_backend/internal/store"
)

// DatabaseStore implements persistent storage using PostgreSQL
type DatabaseStore struct {
	db *sql.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(db *sql.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Ping verifies the database connection is alive
func (s *DatabaseStore) Ping() error {
	return s.db.Ping()
}

// ===== Sensor readings =====

// InsertReading stores a sensor reading and returns the generated id
func (s *DatabaseStore) InsertReading(reading models.SensorReading) (int64, error) {
	query := `
		INSERT INTO sensor_readings (sensor_id, sensor_type, value, unit, status, interval_seconds, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := s.db.QueryRow(query, reading.SensorID, reading.SensorType, reading.Value,
		reading.Unit, reading.Status, reading.IntervalSeconds, reading.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sensor reading: %w", err)
	}
	return id, nil
}

// buildReadingWhere translates a ReadingFilter into a WHERE clause and args
func buildReadingWhere(filter models.ReadingFilter) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	if filter.SensorID != "" {
		args = append(args, filter.SensorID)
		clauses = append(clauses, fmt.Sprintf("sensor_id = $%d", len(args)))
	}
	if len(filter.SensorTypes) > 0 {
		types := make([]string, len(filter.SensorTypes))
		for i, t := range filter.SensorTypes {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		clauses = append(clauses, fmt.Sprintf("sensor_type = ANY($%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// ListReadings returns readings matching the filter, most recent first
func (s *DatabaseStore) ListReadings(filter models.ReadingFilter) ([]models.SensorReading, error) {
	where, args := buildReadingWhere(filter)

	query := fmt.Sprintf(`
		SELECT id, sensor_id, sensor_type, value, unit, status, interval_seconds, timestamp
		FROM sensor_readings
		%s
		ORDER BY timestamp DESC`, where)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer rows.Close()

	readings := []models.SensorReading{}
	for rows.Next() {
		var reading models.SensorReading
		var intervalSeconds sql.NullInt64
		err := rows.Scan(&reading.ID, &reading.SensorID, &reading.SensorType, &reading.Value,
			&reading.Unit, &reading.Status, &intervalSeconds, &reading.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		if intervalSeconds.Valid {
			seconds := int(intervalSeconds.Int64)
			reading.IntervalSeconds = &seconds
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

// DeleteReading removes one reading by id
func (s *DatabaseStore) DeleteReading(id int64) error {
	result, err := s.db.Exec("DELETE FROM sensor_readings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete sensor reading: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteReadingsWhere removes all readings matching the filter and returns the count
func (s *DatabaseStore) DeleteReadingsWhere(filter models.ReadingFilter) (int64, error) {
	where, args := buildReadingWhere(filter)

	query := fmt.Sprintf("DELETE FROM sensor_readings %s", where)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sensor readings: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllReadings removes every stored reading
func (s *DatabaseStore) DeleteAllReadings() (int64, error) {
	result, err := s.db.Exec("DELETE FROM sensor_readings")
	if err != nil {
		return 0, fmt.Errorf("failed to delete sensor readings: %w", err)
	}
	return result.RowsAffected()
}

// ReadingCount returns the total number of stored readings
func (s *DatabaseStore) ReadingCount() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sensor_readings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sensor readings: %w", err)
	}
	return count, nil
}

// ===== Sensor configuration registry =====

// UpsertSensorConfig creates or fully replaces a sensor configuration
func (s *DatabaseStore) UpsertSensorConfig(config models.SensorConfig) error {
	query := `
		INSERT INTO sensor_configs (sensor_id, display_name, sensor_type, unit, is_enabled, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sensor_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			sensor_type = EXCLUDED.sensor_type,
			unit = EXCLUDED.unit,
			is_enabled = EXCLUDED.is_enabled,
			sort_order = EXCLUDED.sort_order`

	_, err := s.db.Exec(query, config.SensorID, config.DisplayName, config.SensorType,
		config.Unit, config.IsEnabled, config.SortOrder)
	if err != nil {
		return fmt.Errorf("failed to upsert sensor config: %w", err)
	}
	return nil
}

// GetSensorConfig returns one sensor configuration by id
func (s *DatabaseStore) GetSensorConfig(sensorID string) (*models.SensorConfig, error) {
	query := `
		SELECT sensor_id, display_name, sensor_type, unit, is_enabled, sort_order
		FROM sensor_configs
		WHERE sensor_id = $1`

	var config models.SensorConfig
	err := s.db.QueryRow(query, sensorID).Scan(&config.SensorID, &config.DisplayName,
		&config.SensorType, &config.Unit, &config.IsEnabled, &config.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sensor config: %w", err)
	}
	return &config, nil
}

// ListSensorConfigs returns all configured sensors ordered by category and sort order
func (s *DatabaseStore) ListSensorConfigs() ([]models.SensorConfig, error) {
	query := `
		SELECT sensor_id, display_name, sensor_type, unit, is_enabled, sort_order
		FROM sensor_configs
		ORDER BY sensor_type, sort_order, sensor_id`

	return s.querySensorConfigs(query)
}

// ListEnabledSensorsByType returns enabled sensors of one category in sort order
func (s *DatabaseStore) ListEnabledSensorsByType(sensorType models.SensorType) ([]models.SensorConfig, error) {
	query := `
		SELECT sensor_id, display_name, sensor_type, unit, is_enabled, sort_order
		FROM sensor_configs
		WHERE sensor_type = $1 AND is_enabled
		ORDER BY sort_order, sensor_id`

	return s.querySensorConfigs(query, string(sensorType))
}

func (s *DatabaseStore) querySensorConfigs(query string, args ...interface{}) ([]models.SensorConfig, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor configs: %w", err)
	}
	defer rows.Close()

	configs := []models.SensorConfig{}
	for rows.Next() {
		var config models.SensorConfig
		err := rows.Scan(&config.SensorID, &config.DisplayName, &config.SensorType,
			&config.Unit, &config.IsEnabled, &config.SortOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sensor config: %w", err)
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

// ToggleSensorConfig flips the enabled flag and returns the updated config
func (s *DatabaseStore) ToggleSensorConfig(sensorID string) (*models.SensorConfig, error) {
	query := `
		UPDATE sensor_configs
		SET is_enabled = NOT is_enabled
		WHERE sensor_id = $1
		RETURNING sensor_id, display_name, sensor_type, unit, is_enabled, sort_order`

	var config models.SensorConfig
	err := s.db.QueryRow(query, sensorID).Scan(&config.SensorID, &config.DisplayName,
		&config.SensorType, &config.Unit, &config.IsEnabled, &config.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle sensor config: %w", err)
	}
	return &config, nil
}

// DeleteSensorConfig removes a sensor configuration. Historical readings of
// that sensor are kept.
func (s *DatabaseStore) DeleteSensorConfig(sensorID string) error {
	result, err := s.db.Exec("DELETE FROM sensor_configs WHERE sensor_id = $1", sensorID)
	if err != nil {
		return fmt.Errorf("failed to delete sensor config: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ReorderSensorConfig updates the sort order of one sensor within its category
func (s *DatabaseStore) ReorderSensorConfig(sensorID string, newSortOrder int) error {
	result, err := s.db.Exec("UPDATE sensor_configs SET sort_order = $1 WHERE sensor_id = $2",
		newSortOrder, sensorID)
	if err != nil {
		return fmt.Errorf("failed to reorder sensor config: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ===== Interval catalogue =====

// ListIntervals returns the selectable sampling periods, shortest first
func (s *DatabaseStore) ListIntervals() ([]models.LoggerInterval, error) {
	query := `
		SELECT id, interval_seconds, interval_name
		FROM logger_intervals
		ORDER BY interval_seconds`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query intervals: %w", err)
	}
	defer rows.Close()

	intervals := []models.LoggerInterval{}
	for rows.Next() {
		var interval models.LoggerInterval
		if err := rows.Scan(&interval.ID, &interval.IntervalSeconds, &interval.IntervalName); err != nil {
			return nil, fmt.Errorf("failed to scan interval: %w", err)
		}
		intervals = append(intervals, interval)
	}
	return intervals, rows.Err()
}

// CreateInterval adds a sampling period to the catalogue
func (s *DatabaseStore) CreateInterval(interval *models.LoggerInterval) error {
	query := `
		INSERT INTO logger_intervals (interval_seconds, interval_name)
		VALUES ($1, $2)
		RETURNING id`

	err := s.db.QueryRow(query, interval.IntervalSeconds, interval.IntervalName).Scan(&interval.ID)
	if err != nil {
		return fmt.Errorf("failed to create interval: %w", err)
	}
	return nil
}

// DeleteInterval removes a sampling period. The ON DELETE SET NULL constraint
// on users.active_interval_id clears weak references.
func (s *DatabaseStore) DeleteInterval(id int) error {
	result, err := s.db.Exec("DELETE FROM logger_intervals WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete interval: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ===== Users =====

// CreateUser stores a new user account
func (s *DatabaseStore) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, role, is_active, active_interval_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.db.QueryRow(query, user.Username, user.Email, user.PasswordHash,
		user.Role, user.IsActive, user.ActiveIntervalID).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *DatabaseStore) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var activeIntervalID sql.NullInt64
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.IsActive, &activeIntervalID, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if activeIntervalID.Valid {
		id := int(activeIntervalID.Int64)
		user.ActiveIntervalID = &id
	}
	return &user, nil
}

// GetUser returns one user by id
func (s *DatabaseStore) GetUser(id int) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_active, active_interval_id, created_at
		FROM users
		WHERE id = $1`

	return s.scanUser(s.db.QueryRow(query, id))
}

// GetUserByUsername returns one user by username
func (s *DatabaseStore) GetUserByUsername(username string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_active, active_interval_id, created_at
		FROM users
		WHERE username = $1`

	return s.scanUser(s.db.QueryRow(query, username))
}

// ListUsers returns all user accounts ordered by id
func (s *DatabaseStore) ListUsers() ([]models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_active, active_interval_id, created_at
		FROM users
		ORDER BY id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		var activeIntervalID sql.NullInt64
		err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.Role, &user.IsActive, &activeIntervalID, &user.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if activeIntervalID.Valid {
			id := int(activeIntervalID.Int64)
			user.ActiveIntervalID = &id
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser replaces a stored user row
func (s *DatabaseStore) UpdateUser(user *models.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3, role = $4,
			is_active = $5, active_interval_id = $6
		WHERE id = $7`

	result, err := s.db.Exec(query, user.Username, user.Email, user.PasswordHash,
		user.Role, user.IsActive, user.ActiveIntervalID, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user account
func (s *DatabaseStore) DeleteUser(id int) error {
	result, err := s.db.Exec("DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetUserActiveInterval updates a user's remembered sampling period
func (s *DatabaseStore) SetUserActiveInterval(userID int, intervalID *int) error {
	result, err := s.db.Exec("UPDATE users SET active_interval_id = $1 WHERE id = $2",
		intervalID, userID)
	if err != nil {
		return fmt.Errorf("failed to set active interval: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ===== Schema SVG assets =====

// CreateSchema stores a new schema asset (inactive until activated)
func (s *DatabaseStore) CreateSchema(schema *models.Schema) error {
	query := `
		INSERT INTO schemas (file_name, svg_content, version, is_active)
		VALUES ($1, $2, $3, false)
		RETURNING id, created_at`

	err := s.db.QueryRow(query, schema.FileName, schema.SVGContent, schema.Version).
		Scan(&schema.ID, &schema.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	schema.IsActive = false
	return nil
}

func (s *DatabaseStore) scanSchema(row *sql.Row) (*models.Schema, error) {
	var schema models.Schema
	err := row.Scan(&schema.ID, &schema.FileName, &schema.SVGContent,
		&schema.Version, &schema.IsActive, &schema.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schema: %w", err)
	}
	return &schema, nil
}

// GetSchema returns one schema asset with content
func (s *DatabaseStore) GetSchema(id int) (*models.Schema, error) {
	query := `
		SELECT id, file_name, svg_content, version, is_active, created_at
		FROM schemas
		WHERE id = $1`

	return s.scanSchema(s.db.QueryRow(query, id))
}

// GetActiveSchema returns the single active schema asset
func (s *DatabaseStore) GetActiveSchema() (*models.Schema, error) {
	query := `
		SELECT id, file_name, svg_content, version, is_active, created_at
		FROM schemas
		WHERE is_active`

	return s.scanSchema(s.db.QueryRow(query))
}

// ListSchemas returns all schema assets without SVG content, newest first
func (s *DatabaseStore) ListSchemas() ([]models.Schema, error) {
	query := `
		SELECT id, file_name, version, is_active, created_at
		FROM schemas
		ORDER BY id DESC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schemas: %w", err)
	}
	defer rows.Close()

	schemas := []models.Schema{}
	for rows.Next() {
		var schema models.Schema
		err := rows.Scan(&schema.ID, &schema.FileName, &schema.Version,
			&schema.IsActive, &schema.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		schemas = append(schemas, schema)
	}
	return schemas, rows.Err()
}

// ActivateSchema makes one schema the active diagram, deactivating any other.
// Runs in a transaction so observers never see zero or two active rows.
func (s *DatabaseStore) ActivateSchema(id int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE schemas SET is_active = false WHERE is_active"); err != nil {
		return fmt.Errorf("failed to deactivate current schema: %w", err)
	}

	result, err := tx.Exec("UPDATE schemas SET is_active = true WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to activate schema: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

// DeleteSchema removes a schema asset
func (s *DatabaseStore) DeleteSchema(id int) error {
	result, err := s.db.Exec("DELETE FROM schemas WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
