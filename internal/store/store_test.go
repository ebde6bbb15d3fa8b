package store

import (
	"errors"
	"testing"
	"time"

	"github.com/oceanworks/desal_backend/internal/models"
)

func intPtr(i int) *int {
	return &i
}

func newReading(sensorID string, sensorType models.SensorType, value float64) models.SensorReading {
	return models.SensorReading{
		SensorID:        sensorID,
		SensorType:      sensorType,
		Value:           value,
		Unit:            models.DefaultUnitForType(sensorType),
		Status:          models.ReadingStatusActive,
		IntervalSeconds: intPtr(60),
		Timestamp:       time.Now(),
	}
}

func TestStore_InsertAndListReadings(t *testing.T) {
	store := NewStore(100)

	id1, err := store.InsertReading(newReading("H1", models.SensorTypeHumidity, 55.2))
	if err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	id2, err := store.InsertReading(newReading("T1", models.SensorTypeAirTemp, 21.4))
	if err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}

	if id2 <= id1 {
		t.Errorf("expected monotonic ids, got %d then %d", id1, id2)
	}

	readings, err := store.ListReadings(models.ReadingFilter{})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
}

func TestStore_ListReadings_FilterByType(t *testing.T) {
	store := NewStore(100)

	store.InsertReading(newReading("H1", models.SensorTypeHumidity, 55.2))
	store.InsertReading(newReading("H2", models.SensorTypeHumidity, 58.0))
	store.InsertReading(newReading("T1", models.SensorTypeAirTemp, 21.4))

	readings, err := store.ListReadings(models.ReadingFilter{
		SensorTypes: []models.SensorType{models.SensorTypeHumidity},
	})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 humidity readings, got %d", len(readings))
	}
	for _, r := range readings {
		if r.SensorType != models.SensorTypeHumidity {
			t.Errorf("expected humidity reading, got %s", r.SensorType)
		}
	}
}

func TestStore_ListReadings_MostRecentFirstWithLimit(t *testing.T) {
	store := NewStore(100)

	base := time.Now()
	for i := 0; i < 5; i++ {
		r := newReading("H1", models.SensorTypeHumidity, float64(i))
		r.Timestamp = base.Add(time.Duration(i) * time.Minute)
		store.InsertReading(r)
	}

	readings, err := store.ListReadings(models.ReadingFilter{Limit: 3})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	if readings[0].Value != 4 {
		t.Errorf("expected most recent reading first, got value %v", readings[0].Value)
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.After(readings[i-1].Timestamp) {
			t.Error("expected readings sorted most recent first")
		}
	}
}

func TestStore_DeleteReading(t *testing.T) {
	store := NewStore(100)

	id, _ := store.InsertReading(newReading("H1", models.SensorTypeHumidity, 55.2))

	if err := store.DeleteReading(id); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	if err := store.DeleteReading(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_DeleteReadingsWhere(t *testing.T) {
	store := NewStore(100)

	store.InsertReading(newReading("H1", models.SensorTypeHumidity, 55.2))
	store.InsertReading(newReading("T1", models.SensorTypeAirTemp, 21.4))
	store.InsertReading(newReading("WT1", models.SensorTypeWaterTemp, 18.9))

	deleted, err := store.DeleteReadingsWhere(models.ReadingFilter{
		SensorTypes: []models.SensorType{models.SensorTypeHumidity, models.SensorTypeAirTemp},
	})
	if err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	count, _ := store.ReadingCount()
	if count != 1 {
		t.Errorf("expected 1 remaining reading, got %d", count)
	}
}

func TestStore_MaxReadingsEviction(t *testing.T) {
	store := NewStore(3)

	for i := 0; i < 5; i++ {
		store.InsertReading(newReading("H1", models.SensorTypeHumidity, float64(i)))
	}

	count, _ := store.ReadingCount()
	if count != 3 {
		t.Errorf("expected eviction to cap readings at 3, got %d", count)
	}
}

func TestStore_SensorConfigLifecycle(t *testing.T) {
	store := NewStore(100)

	config := models.SensorConfig{
		SensorID:    "H1",
		DisplayName: "Condenser Humidity",
		SensorType:  models.SensorTypeHumidity,
		Unit:        "%",
		IsEnabled:   true,
		SortOrder:   1,
	}

	if err := store.UpsertSensorConfig(config); err != nil {
		t.Fatalf("unexpected upsert error: %v", err)
	}

	got, err := store.GetSensorConfig("H1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got.DisplayName != "Condenser Humidity" {
		t.Errorf("expected display name to round-trip, got %q", got.DisplayName)
	}

	// Toggle flips enabled flag
	toggled, err := store.ToggleSensorConfig("H1")
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if toggled.IsEnabled {
		t.Error("expected toggle to disable the sensor")
	}

	// Toggle of unknown sensor fails
	if _, err := store.ToggleSensorConfig("NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown sensor, got %v", err)
	}

	if err := store.DeleteSensorConfig("H1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := store.GetSensorConfig("H1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_DeleteSensorConfig_KeepsReadings(t *testing.T) {
	store := NewStore(100)

	store.UpsertSensorConfig(models.SensorConfig{
		SensorID:    "H1",
		DisplayName: "Condenser Humidity",
		SensorType:  models.SensorTypeHumidity,
		IsEnabled:   true,
	})
	store.InsertReading(newReading("H1", models.SensorTypeHumidity, 55.2))

	if err := store.DeleteSensorConfig("H1"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	readings, _ := store.ListReadings(models.ReadingFilter{SensorID: "H1"})
	if len(readings) != 1 {
		t.Errorf("expected historical readings to survive config deletion, got %d", len(readings))
	}
}

func TestStore_ListEnabledSensorsByType(t *testing.T) {
	store := NewStore(100)

	store.UpsertSensorConfig(models.SensorConfig{SensorID: "H1", DisplayName: "H1", SensorType: models.SensorTypeHumidity, IsEnabled: true, SortOrder: 2})
	store.UpsertSensorConfig(models.SensorConfig{SensorID: "H2", DisplayName: "H2", SensorType: models.SensorTypeHumidity, IsEnabled: true, SortOrder: 1})
	store.UpsertSensorConfig(models.SensorConfig{SensorID: "H3", DisplayName: "H3", SensorType: models.SensorTypeHumidity, IsEnabled: false, SortOrder: 3})
	store.UpsertSensorConfig(models.SensorConfig{SensorID: "T1", DisplayName: "T1", SensorType: models.SensorTypeAirTemp, IsEnabled: true, SortOrder: 1})

	enabled, err := store.ListEnabledSensorsByType(models.SensorTypeHumidity)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled humidity sensors, got %d", len(enabled))
	}
	if enabled[0].SensorID != "H2" || enabled[1].SensorID != "H1" {
		t.Errorf("expected sort order H2,H1, got %s,%s", enabled[0].SensorID, enabled[1].SensorID)
	}
}

func TestStore_DeleteInterval_NullsUserReference(t *testing.T) {
	store := NewStore(100)

	interval := &models.LoggerInterval{IntervalSeconds: 60, IntervalName: "1 Minute"}
	if err := store.CreateInterval(interval); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	user := &models.User{Username: "alice", Email: "alice@rig.local", Role: models.RoleUser, IsActive: true}
	if err := store.CreateUser(user); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if err := store.SetUserActiveInterval(user.ID, intPtr(interval.ID)); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}

	if err := store.DeleteInterval(interval.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	got, err := store.GetUser(user.ID)
	if err != nil {
		t.Fatalf("expected user row to survive interval deletion: %v", err)
	}
	if got.ActiveIntervalID != nil {
		t.Errorf("expected active interval reference cleared, got %v", *got.ActiveIntervalID)
	}
}

func TestStore_CreateInterval_RejectsDuplicateSeconds(t *testing.T) {
	store := NewStore(100)

	if err := store.CreateInterval(&models.LoggerInterval{IntervalSeconds: 60, IntervalName: "1 Minute"}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if err := store.CreateInterval(&models.LoggerInterval{IntervalSeconds: 60, IntervalName: "Also 1 Minute"}); err == nil {
		t.Error("expected duplicate interval seconds to be rejected")
	}
}

func TestStore_ActivateSchema_SingleActive(t *testing.T) {
	store := NewStore(100)

	first := &models.Schema{FileName: "rig_v1.svg", SVGContent: "<svg>v1</svg>", Version: 1}
	second := &models.Schema{FileName: "rig_v2.svg", SVGContent: "<svg>v2</svg>", Version: 2}
	store.CreateSchema(first)
	store.CreateSchema(second)

	if err := store.ActivateSchema(first.ID); err != nil {
		t.Fatalf("unexpected activate error: %v", err)
	}
	if err := store.ActivateSchema(second.ID); err != nil {
		t.Fatalf("unexpected activate error: %v", err)
	}

	active, err := store.GetActiveSchema()
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("expected schema %d active, got %d", second.ID, active.ID)
	}

	schemas, _ := store.ListSchemas()
	activeCount := 0
	for _, schema := range schemas {
		if schema.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("expected exactly one active schema, got %d", activeCount)
	}
}

func TestStore_UserLifecycle(t *testing.T) {
	store := NewStore(100)

	user := &models.User{Username: "bob", Email: "bob@rig.local", Role: models.RoleAdmin, IsActive: true}
	if err := store.CreateUser(user); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	// Duplicate username rejected
	dup := &models.User{Username: "bob", Email: "bob2@rig.local", Role: models.RoleUser}
	if err := store.CreateUser(dup); err == nil {
		t.Error("expected duplicate username to be rejected")
	}

	byName, err := store.GetUserByUsername("bob")
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if byName.ID != user.ID {
		t.Errorf("expected id %d, got %d", user.ID, byName.ID)
	}

	byName.IsActive = false
	if err := store.UpdateUser(byName); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	got, _ := store.GetUser(user.ID)
	if got.IsActive {
		t.Error("expected user to be deactivated")
	}

	if err := store.DeleteUser(user.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := store.GetUser(user.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
