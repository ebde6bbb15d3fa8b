package logger

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oceanworks/desal_backend/internal/models"
	"github.com/oceanworks/desal_backend/internal/store"
)

// Validation and state errors reported synchronously to callers
var (
	ErrInvalidInterval         = errors.New("interval is not in the configured catalogue")
	ErrNoSensorsSelected       = errors.New("at least one sensor category must be selected")
	ErrAlreadyLogging          = errors.New("logging session already running")
	ErrReconfigureWhileRunning = errors.New("cannot reconfigure while logging is running; stop first")
)

// Selector chooses whether a sensor category is sampled during a session
type Selector string

const (
	SelectorAll  Selector = "all"
	SelectorNone Selector = "none"
)

// Selectors holds the per-category sampling choice of one session
type Selectors struct {
	Humidity         Selector `json:"humidity"`
	AirTemperature   Selector `json:"air_temperature"`
	WaterTemperature Selector `json:"water_temperature"`
}

// AnySelected reports whether at least one category is set to all
func (s Selectors) AnySelected() bool {
	return s.Humidity == SelectorAll || s.AirTemperature == SelectorAll || s.WaterTemperature == SelectorAll
}

// selectedTypes returns the sensor categories this session samples
func (s Selectors) selectedTypes() []models.SensorType {
	types := []models.SensorType{}
	if s.Humidity == SelectorAll {
		types = append(types, models.SensorTypeHumidity)
	}
	if s.AirTemperature == SelectorAll {
		types = append(types, models.SensorTypeAirTemp)
	}
	if s.WaterTemperature == SelectorAll {
		types = append(types, models.SensorTypeWaterTemp)
	}
	return types
}

// Status is a point-in-time view of one user's logging session
type Status struct {
	UserID     int       `json:"user_id"`
	IsLogging  bool      `json:"is_logging"`
	IntervalMS int       `json:"interval_ms"`
	LogCount   int64     `json:"log_count"`
	Selectors  Selectors `json:"selectors"`
}

// ValueSource answers "what did this sensor last report". A missing value
// means no recent sample; the sensor is skipped for that tick.
type ValueSource interface {
	Get(sensorID string) (float64, bool)
}

// session is the runtime state of one user's logging. The object outlives
// the Running state so the last log count stays reportable after stop.
type session struct {
	userID     int
	selectors  Selectors
	intervalMS int
	logCount   atomic.Int64
	isLogging  bool

	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// Controller owns the per-user logging sessions. Each Running session drives
// its own ticker goroutine, so one user's interval never affects another's.
type Controller struct {
	store  store.DataStore
	values ValueSource

	mu       sync.RWMutex
	sessions map[int]*session

	// OnReading, when set, is called for every persisted reading (used to
	// push live updates to dashboard clients). Must not block.
	OnReading func(models.SensorReading)
}

// NewController creates a logging session controller
func NewController(dataStore store.DataStore, values ValueSource) *Controller {
	return &Controller{
		store:    dataStore,
		values:   values,
		sessions: make(map[int]*session),
	}
}

// validateInterval checks intervalMS against the global interval catalogue
func (c *Controller) validateInterval(intervalMS int) (*models.LoggerInterval, error) {
	if intervalMS <= 0 || intervalMS%1000 != 0 {
		return nil, ErrInvalidInterval
	}

	intervals, err := c.store.ListIntervals()
	if err != nil {
		return nil, fmt.Errorf("failed to load interval catalogue: %w", err)
	}

	seconds := intervalMS / 1000
	for i := range intervals {
		if intervals[i].IntervalSeconds == seconds {
			return &intervals[i], nil
		}
	}
	return nil, ErrInvalidInterval
}

// Start begins a logging session for the user. Fails with ErrAlreadyLogging
// if a session is already running (the existing session and its log count
// are untouched).
func (c *Controller) Start(userID int, selectors Selectors, intervalMS int) (Status, error) {
	if !selectors.AnySelected() {
		return Status{}, ErrNoSensorsSelected
	}

	interval, err := c.validateInterval(intervalMS)
	if err != nil {
		return Status{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sessions[userID]; ok && existing.isLogging {
		return Status{}, ErrAlreadyLogging
	}

	s := &session{
		userID:     userID,
		selectors:  selectors,
		intervalMS: intervalMS,
		isLogging:  true,
		ticker:     time.NewTicker(time.Duration(intervalMS) * time.Millisecond),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.sessions[userID] = s

	go c.run(s)

	// Remember the chosen interval on the user row; best effort
	if err := c.store.SetUserActiveInterval(userID, &interval.ID); err != nil {
		log.Printf("⚠️  Logger: Failed to remember interval for user %d: %v", userID, err)
	}

	log.Printf("📝 Logger: Started session for user %d at %dms", userID, intervalMS)
	return c.statusLocked(userID), nil
}

// Stop ends the user's logging session. Safe no-op if no session is running.
// When Stop returns, no further tick will fire; a tick already in flight has
// finished (the run goroutine is joined before returning).
func (c *Controller) Stop(userID int) {
	c.mu.Lock()
	s, ok := c.sessions[userID]
	if !ok || !s.isLogging {
		c.mu.Unlock()
		return
	}

	s.isLogging = false
	s.ticker.Stop()
	close(s.stop)
	c.mu.Unlock()

	<-s.done

	log.Printf("📝 Logger: Stopped session for user %d after %d readings", userID, s.logCount.Load())
}

// Configure updates the session's interval and selectors. Rejected while the
// session is running: the caller must stop, then start with new settings.
func (c *Controller) Configure(userID int, selectors *Selectors, intervalMS *int) error {
	if selectors != nil && !selectors.AnySelected() {
		return ErrNoSensorsSelected
	}

	var interval *models.LoggerInterval
	if intervalMS != nil {
		var err error
		interval, err = c.validateInterval(*intervalMS)
		if err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if ok && s.isLogging {
		return ErrReconfigureWhileRunning
	}
	if !ok {
		s = &session{userID: userID}
		c.sessions[userID] = s
	}

	if selectors != nil {
		s.selectors = *selectors
	}
	if intervalMS != nil {
		s.intervalMS = *intervalMS
		if err := c.store.SetUserActiveInterval(userID, &interval.ID); err != nil {
			log.Printf("⚠️  Logger: Failed to remember interval for user %d: %v", userID, err)
		}
	}
	return nil
}

// Status returns the current session state for one user. Safe to poll
// concurrently; never mutates state.
func (c *Controller) Status(userID int) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.statusLocked(userID)
}

func (c *Controller) statusLocked(userID int) Status {
	s, ok := c.sessions[userID]
	if !ok {
		return Status{UserID: userID, Selectors: Selectors{
			Humidity:         SelectorNone,
			AirTemperature:   SelectorNone,
			WaterTemperature: SelectorNone,
		}}
	}
	return Status{
		UserID:     userID,
		IsLogging:  s.isLogging,
		IntervalMS: s.intervalMS,
		LogCount:   s.logCount.Load(),
		Selectors:  s.selectors,
	}
}

// ListRunning returns the status of every user with a running session
func (c *Controller) ListRunning() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statuses := []Status{}
	for userID, s := range c.sessions {
		if s.isLogging {
			statuses = append(statuses, c.statusLocked(userID))
		}
	}
	return statuses
}

// StopAll ends every running session (operator forced shutdown)
func (c *Controller) StopAll() {
	c.mu.RLock()
	userIDs := make([]int, 0, len(c.sessions))
	for userID, s := range c.sessions {
		if s.isLogging {
			userIDs = append(userIDs, userID)
		}
	}
	c.mu.RUnlock()

	for _, userID := range userIDs {
		c.Stop(userID)
	}
}

// run is the per-session timer loop. Ticks never overlap within a session:
// the next tick is only waited on after the previous tick's writes finished.
func (c *Controller) run(s *session) {
	defer close(s.done)

	for {
		select {
		case <-s.ticker.C:
			c.tick(s)
		case <-s.stop:
			return
		}
	}
}

// tick samples every enabled sensor of the selected categories and persists
// one reading per sensor with a recent value. Write failures are logged and
// skipped; a failed tick never terminates the session.
func (c *Controller) tick(s *session) {
	now := time.Now()
	intervalSeconds := s.intervalMS / 1000

	for _, sensorType := range s.selectors.selectedTypes() {
		configs, err := c.store.ListEnabledSensorsByType(sensorType)
		if err != nil {
			log.Printf("❌ Logger: Failed to list %s sensors for user %d: %v", sensorType, s.userID, err)
			continue
		}

		for _, config := range configs {
			value, ok := c.values.Get(config.SensorID)
			if !ok {
				// No recent sample; skip this sensor this tick
				continue
			}

			seconds := intervalSeconds
			reading := models.SensorReading{
				SensorID:        config.SensorID,
				SensorType:      config.SensorType,
				Value:           value,
				Unit:            config.Unit,
				Status:          models.ReadingStatusActive,
				IntervalSeconds: &seconds,
				Timestamp:       now,
			}

			id, err := c.store.InsertReading(reading)
			if err != nil {
				log.Printf("❌ Logger: Failed to persist reading for sensor %s (user %d): %v",
					config.SensorID, s.userID, err)
				continue
			}

			reading.ID = id
			s.logCount.Add(1)

			if c.OnReading != nil {
				c.OnReading(reading)
			}
		}
	}
}
