package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanworks/desal_backend/internal/models"
)

func TestLatestValues_SetAndGet(t *testing.T) {
	lv := NewLatestValues(time.Minute)

	lv.Set("H1", 55.2)

	value, ok := lv.Get("H1")
	require.True(t, ok)
	assert.Equal(t, 55.2, value)

	_, ok = lv.Get("H2")
	assert.False(t, ok, "unseen sensor should have no value")
}

func TestLatestValues_ExpiredSampleIsMissing(t *testing.T) {
	lv := NewLatestValues(20 * time.Millisecond)

	lv.Set("H1", 55.2)
	time.Sleep(40 * time.Millisecond)

	_, ok := lv.Get("H1")
	assert.False(t, ok, "expired sample should read as no recent sample")

	// The id stays known for discovery even after expiry
	assert.Contains(t, lv.SeenIDs(), "H1")
}

func TestLatestValues_Snapshot(t *testing.T) {
	lv := NewLatestValues(time.Minute)

	lv.Set("H1", 55.2)
	lv.Set("T1", 21.4)

	snapshot := lv.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 55.2, snapshot["H1"])
	assert.Equal(t, 21.4, snapshot["T1"])
}

func TestLatestValues_Discovered(t *testing.T) {
	lv := NewLatestValues(time.Minute)

	lv.Set("H7", 61.0)
	lv.Set("WT2", 19.5)
	lv.Set("T3", 22.8)

	configured := map[string]bool{"T3": true}

	discovered := lv.Discovered(configured)
	require.Len(t, discovered, 2)

	byID := map[string]models.DiscoveredSensor{}
	for _, d := range discovered {
		byID[d.SensorID] = d
	}

	assert.Equal(t, models.SensorTypeHumidity, byID["H7"].SuggestedType)
	assert.Equal(t, models.SensorTypeWaterTemp, byID["WT2"].SuggestedType)
	require.NotNil(t, byID["H7"].LastValue)
	assert.Equal(t, 61.0, *byID["H7"].LastValue)
}
