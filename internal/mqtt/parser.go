package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Sample is one raw telemetry message from the rig
type Sample struct {
	SensorID string  `json:"sensor_id"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
}

// SampleParser handles parsing of telemetry payloads from the rig controller
type SampleParser struct{}

// NewSampleParser creates a new instance of SampleParser
func NewSampleParser() *SampleParser {
	return &SampleParser{}
}

// ParseJSON parses a JSON telemetry payload. topicSensorID, when non-empty,
// supplies the sensor id for payloads published on per-sensor topics.
func (p *SampleParser) ParseJSON(payload []byte, topicSensorID string) (*Sample, error) {
	var sample Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return nil, fmt.Errorf("failed to parse telemetry JSON: %w", err)
	}

	if sample.SensorID == "" {
		sample.SensorID = topicSensorID
	}
	if sample.SensorID == "" {
		return nil, fmt.Errorf("telemetry payload missing sensor_id")
	}
	return &sample, nil
}

// ParseString parses the "sensorID,value" fallback format used by the
// simplest rig firmware builds
func (p *SampleParser) ParseString(payload string) (*Sample, error) {
	parts := strings.SplitN(strings.TrimSpace(payload), ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("failed to parse telemetry string: expected \"id,value\", got %q", payload)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse telemetry value %q: %w", parts[1], err)
	}

	sensorID := strings.TrimSpace(parts[0])
	if sensorID == "" {
		return nil, fmt.Errorf("telemetry payload missing sensor id")
	}

	return &Sample{SensorID: sensorID, Value: value}, nil
}
