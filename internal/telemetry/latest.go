package telemetry

import (
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/oceanworks/desal_backend/internal/models"
)

// LatestValues caches the most recent value per sensor id. Entries expire
// after the sample TTL, so a sensor that stops reporting reads back as
// "no recent sample" rather than a stale value.
type LatestValues struct {
	cache *gocache.Cache

	mu   sync.RWMutex
	seen map[string]time.Time // every sensor id ever observed in telemetry
}

// NewLatestValues creates a latest-value cache with the given sample TTL
func NewLatestValues(sampleTTL time.Duration) *LatestValues {
	if sampleTTL <= 0 {
		sampleTTL = 2 * time.Minute
	}

	return &LatestValues{
		cache: gocache.New(sampleTTL, 5*time.Minute),
		seen:  make(map[string]time.Time),
	}
}

// Set records a new sample for a sensor
func (lv *LatestValues) Set(sensorID string, value float64) {
	lv.cache.SetDefault(sensorID, value)

	lv.mu.Lock()
	lv.seen[sensorID] = time.Now()
	lv.mu.Unlock()
}

// Get returns the latest value for a sensor. The second return is false when
// the sensor has never reported or its last sample has expired.
func (lv *LatestValues) Get(sensorID string) (float64, bool) {
	v, found := lv.cache.Get(sensorID)
	if !found {
		return 0, false
	}
	return v.(float64), true
}

// Snapshot returns all currently fresh values keyed by sensor id
func (lv *LatestValues) Snapshot() map[string]float64 {
	items := lv.cache.Items()
	result := make(map[string]float64, len(items))
	for sensorID, item := range items {
		result[sensorID] = item.Object.(float64)
	}
	return result
}

// SeenIDs returns every sensor id ever observed, sorted
func (lv *LatestValues) SeenIDs() []string {
	lv.mu.RLock()
	defer lv.mu.RUnlock()

	ids := make([]string, 0, len(lv.seen))
	for id := range lv.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Discovered returns sensor ids observed in telemetry but absent from the
// configured set, each with a category suggested from the id prefix.
// Advisory only; nothing is auto-configured.
func (lv *LatestValues) Discovered(configured map[string]bool) []models.DiscoveredSensor {
	discovered := []models.DiscoveredSensor{}
	for _, id := range lv.SeenIDs() {
		if configured[id] {
			continue
		}
		d := models.DiscoveredSensor{
			SensorID:      id,
			SuggestedType: models.SuggestTypeForID(id),
		}
		if value, ok := lv.Get(id); ok {
			v := value
			d.LastValue = &v
		}
		discovered = append(discovered, d)
	}
	return discovered
}
