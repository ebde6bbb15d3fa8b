package models

import (
	"strings"
	"time"
)

// SensorType categorizes the physical sensors on the desalination rig
type SensorType string

const (
	SensorTypeHumidity      SensorType = "humidity"
	SensorTypeAirTemp       SensorType = "air_temperature"
	SensorTypeWaterTemp     SensorType = "water_temperature"
	SensorTypeWaterLevel    SensorType = "water_level"
	SensorTypeUncategorized SensorType = "uncategorized"
)

// ValidSensorType reports whether t is one of the known sensor categories
func ValidSensorType(t SensorType) bool {
	switch t {
	case SensorTypeHumidity, SensorTypeAirTemp, SensorTypeWaterTemp,
		SensorTypeWaterLevel, SensorTypeUncategorized:
		return true
	}
	return false
}

// ReadingStatus marks whether a reading came from an active logging session
type ReadingStatus string

const (
	ReadingStatusActive   ReadingStatus = "active"
	ReadingStatusInactive ReadingStatus = "inactive"
)

// SensorReading is one timestamped sensor value persisted by a logging session
type SensorReading struct {
	ID              int64         `json:"id"`
	SensorID        string        `json:"sensor_id"`
	SensorType      SensorType    `json:"sensor_type"`
	Value           float64       `json:"value"`
	Unit            string        `json:"unit"`
	Status          ReadingStatus `json:"status"`
	IntervalSeconds *int          `json:"interval_seconds,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// ValidateReading checks if the reading is well-formed
func (r *SensorReading) ValidateReading() bool {
	if r.SensorID == "" {
		return false
	}
	if !ValidSensorType(r.SensorType) {
		return false
	}
	if r.Status != ReadingStatusActive && r.Status != ReadingStatusInactive {
		return false
	}
	if r.IntervalSeconds != nil && *r.IntervalSeconds <= 0 {
		return false
	}
	return true
}

// SensorConfig maps a physical sensor identifier to display metadata
type SensorConfig struct {
	SensorID    string     `json:"sensor_id"`
	DisplayName string     `json:"display_name"`
	SensorType  SensorType `json:"sensor_type"`
	Unit        string     `json:"unit"`
	IsEnabled   bool       `json:"is_enabled"`
	SortOrder   int        `json:"sort_order"`
}

// Validate checks if the config is a complete record
func (c *SensorConfig) Validate() bool {
	return c.SensorID != "" && c.DisplayName != "" && ValidSensorType(c.SensorType)
}

// SuggestTypeForID guesses a sensor category from the identifier prefix.
// Rig wiring convention: H* humidity, WT* water temperature, T*/AT* air
// temperature, L*/WL* water level. Advisory only.
func SuggestTypeForID(sensorID string) SensorType {
	id := strings.ToUpper(sensorID)
	switch {
	case strings.HasPrefix(id, "H"):
		return SensorTypeHumidity
	case strings.HasPrefix(id, "WT"):
		return SensorTypeWaterTemp
	case strings.HasPrefix(id, "AT"), strings.HasPrefix(id, "T"):
		return SensorTypeAirTemp
	case strings.HasPrefix(id, "WL"), strings.HasPrefix(id, "L"):
		return SensorTypeWaterLevel
	default:
		return SensorTypeUncategorized
	}
}

// DefaultUnitForType returns the display unit conventionally used per category
func DefaultUnitForType(t SensorType) string {
	switch t {
	case SensorTypeHumidity:
		return "%"
	case SensorTypeAirTemp, SensorTypeWaterTemp:
		return "°C"
	case SensorTypeWaterLevel:
		return "cm"
	default:
		return ""
	}
}

// DiscoveredSensor is a sensor id seen in telemetry but not yet configured
type DiscoveredSensor struct {
	SensorID      string     `json:"sensor_id"`
	SuggestedType SensorType `json:"suggested_type"`
	LastValue     *float64   `json:"last_value,omitempty"`
}

// ReadingFilter narrows reading queries and deletions
type ReadingFilter struct {
	SensorID    string
	SensorTypes []SensorType
	From        *time.Time
	To          *time.Time
	Limit       int
}
