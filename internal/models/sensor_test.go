package models

import (
	"testing"
	"time"
)

func TestValidateReading(t *testing.T) {
	interval := 60
	reading := SensorReading{
		SensorID:        "H1",
		SensorType:      SensorTypeHumidity,
		Value:           61.5,
		Unit:            "%",
		Status:          ReadingStatusActive,
		IntervalSeconds: &interval,
		Timestamp:       time.Now(),
	}

	if !reading.ValidateReading() {
		t.Error("Expected a complete reading to validate")
	}

	missing := reading
	missing.SensorID = ""
	if missing.ValidateReading() {
		t.Error("Expected reading without sensor id to be rejected")
	}

	badType := reading
	badType.SensorType = "salinity"
	if badType.ValidateReading() {
		t.Error("Expected reading with unknown type to be rejected")
	}

	badStatus := reading
	badStatus.Status = "paused"
	if badStatus.ValidateReading() {
		t.Error("Expected reading with unknown status to be rejected")
	}

	zero := 0
	badInterval := reading
	badInterval.IntervalSeconds = &zero
	if badInterval.ValidateReading() {
		t.Error("Expected reading with non-positive interval to be rejected")
	}
}

func TestSensorConfigValidate(t *testing.T) {
	config := SensorConfig{
		SensorID:    "WT1",
		DisplayName: "Tank water temperature",
		SensorType:  SensorTypeWaterTemp,
		Unit:        "°C",
	}

	if !config.Validate() {
		t.Error("Expected a complete config to validate")
	}

	config.DisplayName = ""
	if config.Validate() {
		t.Error("Expected config without display name to be rejected")
	}
}

func TestSuggestTypeForID(t *testing.T) {
	cases := []struct {
		sensorID string
		expected SensorType
	}{
		{"H1", SensorTypeHumidity},
		{"h2", SensorTypeHumidity},
		{"WT1", SensorTypeWaterTemp},
		{"T3", SensorTypeAirTemp},
		{"AT1", SensorTypeAirTemp},
		{"WL7", SensorTypeWaterLevel},
		{"L2", SensorTypeWaterLevel},
		{"X9", SensorTypeUncategorized},
	}

	for _, tc := range cases {
		if got := SuggestTypeForID(tc.sensorID); got != tc.expected {
			t.Errorf("SuggestTypeForID(%q) = %v, expected %v", tc.sensorID, got, tc.expected)
		}
	}
}

func TestDefaultUnitForType(t *testing.T) {
	if got := DefaultUnitForType(SensorTypeHumidity); got != "%" {
		t.Errorf("Expected %%, got %s", got)
	}
	if got := DefaultUnitForType(SensorTypeWaterTemp); got != "°C" {
		t.Errorf("Expected °C, got %s", got)
	}
	if got := DefaultUnitForType(SensorTypeUncategorized); got != "" {
		t.Errorf("Expected empty unit, got %s", got)
	}
}

func TestUserValidate(t *testing.T) {
	user := User{
		Username:     "operator",
		Email:        "operator@rig.local",
		PasswordHash: "x",
		Role:         RoleUser,
	}

	if !user.Validate() {
		t.Error("Expected a complete user to validate")
	}
	if user.IsAdmin() {
		t.Error("Expected plain user not to be admin")
	}

	user.Role = "SUPERVISOR"
	if user.Validate() {
		t.Error("Expected user with unknown role to be rejected")
	}
}

func TestSchemaValidate(t *testing.T) {
	schema := Schema{FileName: "rig.svg", SVGContent: "<svg></svg>"}
	if !schema.Validate() {
		t.Error("Expected SVG schema to validate")
	}

	schema.SVGContent = "<html></html>"
	if schema.Validate() {
		t.Error("Expected non-SVG content to be rejected")
	}
}
