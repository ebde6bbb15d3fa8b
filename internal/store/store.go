package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oceanworks/desal_backend/internal/models"
)

// Store manages rig monitoring data in memory. It is the fallback backend
// used when no PostgreSQL database is reachable.
type Store struct {
	mu          sync.RWMutex
	readings    []models.SensorReading
	nextID      int64
	maxReadings int

	configs map[string]models.SensorConfig

	intervals      []models.LoggerInterval
	nextIntervalID int

	users      map[int]models.User
	nextUserID int

	schemas      map[int]models.Schema
	nextSchemaID int
}

// NewStore creates a new in-memory store
func NewStore(maxReadings int) *Store {
	if maxReadings <= 0 {
		maxReadings = 10000 // Default to store last 10000 readings
	}

	return &Store{
		readings:       make([]models.SensorReading, 0, maxReadings),
		nextID:         1,
		maxReadings:    maxReadings,
		configs:        make(map[string]models.SensorConfig),
		nextIntervalID: 1,
		users:          make(map[int]models.User),
		nextUserID:     1,
		schemas:        make(map[int]models.Schema),
		nextSchemaID:   1,
	}
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping() error {
	return nil
}

// ===== Sensor readings =====

// InsertReading stores a new sensor reading and returns its id
func (s *Store) InsertReading(reading models.SensorReading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reading.ID = s.nextID
	s.nextID++
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	s.readings = append(s.readings, reading)

	// Maintain maximum size by removing oldest entries
	if len(s.readings) > s.maxReadings {
		s.readings = s.readings[1:]
	}

	return reading.ID, nil
}

// matchesFilter reports whether a reading passes the filter (limit ignored)
func matchesFilter(r *models.SensorReading, f *models.ReadingFilter) bool {
	if f.SensorID != "" && r.SensorID != f.SensorID {
		return false
	}
	if len(f.SensorTypes) > 0 {
		found := false
		for _, t := range f.SensorTypes {
			if r.SensorType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && r.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && r.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// ListReadings returns readings matching the filter, most recent first,
// bounded by the filter limit
func (s *Store) ListReadings(filter models.ReadingFilter) ([]models.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.SensorReading{}
	for i := range s.readings {
		if matchesFilter(&s.readings[i], &filter) {
			result = append(result, s.readings[i])
		}
	}

	// Sort by timestamp descending (most recent first)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// DeleteReading removes one reading by id
func (s *Store) DeleteReading(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.readings {
		if s.readings[i].ID == id {
			s.readings = append(s.readings[:i], s.readings[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteReadingsWhere removes all readings matching the filter and returns the count
func (s *Store) DeleteReadingsWhere(filter models.ReadingFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.readings[:0]
	var deleted int64
	for i := range s.readings {
		if matchesFilter(&s.readings[i], &filter) {
			deleted++
		} else {
			kept = append(kept, s.readings[i])
		}
	}
	s.readings = kept
	return deleted, nil
}

// DeleteAllReadings removes every stored reading
func (s *Store) DeleteAllReadings() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := int64(len(s.readings))
	s.readings = make([]models.SensorReading, 0, s.maxReadings)
	return deleted, nil
}

// ReadingCount returns the total number of stored readings
func (s *Store) ReadingCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.readings), nil
}

// ===== Sensor configuration registry =====

// UpsertSensorConfig creates or fully replaces a sensor configuration
func (s *Store) UpsertSensorConfig(config models.SensorConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[config.SensorID] = config
	return nil
}

// GetSensorConfig returns one sensor configuration by id
func (s *Store) GetSensorConfig(sensorID string) (*models.SensorConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, exists := s.configs[sensorID]
	if !exists {
		return nil, ErrNotFound
	}
	return &config, nil
}

// ListSensorConfigs returns all configured sensors ordered by category and sort order
func (s *Store) ListSensorConfigs() ([]models.SensorConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]models.SensorConfig, 0, len(s.configs))
	for _, c := range s.configs {
		configs = append(configs, c)
	}

	sort.Slice(configs, func(i, j int) bool {
		if configs[i].SensorType != configs[j].SensorType {
			return configs[i].SensorType < configs[j].SensorType
		}
		if configs[i].SortOrder != configs[j].SortOrder {
			return configs[i].SortOrder < configs[j].SortOrder
		}
		return configs[i].SensorID < configs[j].SensorID
	})

	return configs, nil
}

// ListEnabledSensorsByType returns enabled sensors of one category in sort order
func (s *Store) ListEnabledSensorsByType(sensorType models.SensorType) ([]models.SensorConfig, error) {
	configs, err := s.ListSensorConfigs()
	if err != nil {
		return nil, err
	}

	result := []models.SensorConfig{}
	for _, c := range configs {
		if c.SensorType == sensorType && c.IsEnabled {
			result = append(result, c)
		}
	}
	return result, nil
}

// ToggleSensorConfig flips the enabled flag and returns the updated config
func (s *Store) ToggleSensorConfig(sensorID string) (*models.SensorConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, exists := s.configs[sensorID]
	if !exists {
		return nil, ErrNotFound
	}

	config.IsEnabled = !config.IsEnabled
	s.configs[sensorID] = config
	return &config, nil
}

// DeleteSensorConfig removes a sensor configuration. Historical readings of
// that sensor are kept.
func (s *Store) DeleteSensorConfig(sensorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.configs[sensorID]; !exists {
		return ErrNotFound
	}
	delete(s.configs, sensorID)
	return nil
}

// ReorderSensorConfig updates the sort order of one sensor within its category
func (s *Store) ReorderSensorConfig(sensorID string, newSortOrder int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, exists := s.configs[sensorID]
	if !exists {
		return ErrNotFound
	}

	config.SortOrder = newSortOrder
	s.configs[sensorID] = config
	return nil
}

// ===== Interval catalogue =====

// ListIntervals returns the selectable sampling periods, shortest first
func (s *Store) ListIntervals() ([]models.LoggerInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	intervals := make([]models.LoggerInterval, len(s.intervals))
	copy(intervals, s.intervals)

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].IntervalSeconds < intervals[j].IntervalSeconds
	})

	return intervals, nil
}

// CreateInterval adds a sampling period to the catalogue
func (s *Store) CreateInterval(interval *models.LoggerInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.intervals {
		if existing.IntervalSeconds == interval.IntervalSeconds {
			return fmt.Errorf("interval of %d seconds already exists", interval.IntervalSeconds)
		}
	}

	interval.ID = s.nextIntervalID
	s.nextIntervalID++
	s.intervals = append(s.intervals, *interval)
	return nil
}

// DeleteInterval removes a sampling period. Users referencing it keep their
// row with the reference cleared.
func (s *Store) DeleteInterval(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, interval := range s.intervals {
		if interval.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	s.intervals = append(s.intervals[:idx], s.intervals[idx+1:]...)

	// Null out weak references rather than failing or cascading
	for userID, user := range s.users {
		if user.ActiveIntervalID != nil && *user.ActiveIntervalID == id {
			user.ActiveIntervalID = nil
			s.users[userID] = user
		}
	}

	return nil
}

// ===== Users =====

// CreateUser stores a new user account
func (s *Store) CreateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return fmt.Errorf("username %q already exists", user.Username)
		}
	}

	user.ID = s.nextUserID
	s.nextUserID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = *user
	return nil
}

// GetUser returns one user by id
func (s *Store) GetUser(id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &user, nil
}

// GetUserByUsername returns one user by username
func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			userCopy := user
			return &userCopy, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers returns all user accounts ordered by id
func (s *Store) ListUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].ID < users[j].ID
	})

	return users, nil
}

// UpdateUser replaces a stored user row
func (s *Store) UpdateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; !exists {
		return ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

// DeleteUser removes a user account
func (s *Store) DeleteUser(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// SetUserActiveInterval updates a user's remembered sampling period
func (s *Store) SetUserActiveInterval(userID int, intervalID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return ErrNotFound
	}
	user.ActiveIntervalID = intervalID
	s.users[userID] = user
	return nil
}

// ===== Schema SVG assets =====

// CreateSchema stores a new schema asset (inactive until activated)
func (s *Store) CreateSchema(schema *models.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema.ID = s.nextSchemaID
	s.nextSchemaID++
	schema.IsActive = false
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now()
	}
	s.schemas[schema.ID] = *schema
	return nil
}

// GetSchema returns one schema asset with content
func (s *Store) GetSchema(id int) (*models.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schema, exists := s.schemas[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &schema, nil
}

// GetActiveSchema returns the single active schema asset
func (s *Store) GetActiveSchema() (*models.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, schema := range s.schemas {
		if schema.IsActive {
			schemaCopy := schema
			return &schemaCopy, nil
		}
	}
	return nil, ErrNotFound
}

// ListSchemas returns all schema assets without SVG content, newest first
func (s *Store) ListSchemas() ([]models.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schemas := make([]models.Schema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		schema.SVGContent = ""
		schemas = append(schemas, schema)
	}

	sort.Slice(schemas, func(i, j int) bool {
		return schemas[i].ID > schemas[j].ID
	})

	return schemas, nil
}

// ActivateSchema makes one schema the active diagram, deactivating any other
func (s *Store) ActivateSchema(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, exists := s.schemas[id]
	if !exists {
		return ErrNotFound
	}

	for schemaID, schema := range s.schemas {
		if schema.IsActive {
			schema.IsActive = false
			s.schemas[schemaID] = schema
		}
	}

	target.IsActive = true
	s.schemas[id] = target
	return nil
}

// DeleteSchema removes a schema asset
func (s *Store) DeleteSchema(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schemas[id]; !exists {
		return ErrNotFound
	}
	delete(s.schemas, id)
	return nil
}
