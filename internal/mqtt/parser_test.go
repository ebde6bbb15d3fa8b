package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleParser_ParseJSON(t *testing.T) {
	p := NewSampleParser()

	sample, err := p.ParseJSON([]byte(`{"sensor_id":"H1","value":55.2,"unit":"%"}`), "")
	require.NoError(t, err)
	assert.Equal(t, "H1", sample.SensorID)
	assert.Equal(t, 55.2, sample.Value)
	assert.Equal(t, "%", sample.Unit)
}

func TestSampleParser_ParseJSON_SensorIDFromTopic(t *testing.T) {
	p := NewSampleParser()

	sample, err := p.ParseJSON([]byte(`{"value":21.4}`), "T1")
	require.NoError(t, err)
	assert.Equal(t, "T1", sample.SensorID)
	assert.Equal(t, 21.4, sample.Value)
}

func TestSampleParser_ParseJSON_MissingSensorID(t *testing.T) {
	p := NewSampleParser()

	_, err := p.ParseJSON([]byte(`{"value":21.4}`), "")
	assert.Error(t, err)
}

func TestSampleParser_ParseString(t *testing.T) {
	p := NewSampleParser()

	sample, err := p.ParseString("WT1,18.95")
	require.NoError(t, err)
	assert.Equal(t, "WT1", sample.SensorID)
	assert.Equal(t, 18.95, sample.Value)

	_, err = p.ParseString("just-garbage")
	assert.Error(t, err)

	_, err = p.ParseString("H1,not-a-number")
	assert.Error(t, err)
}

func TestSensorIDFromTopic(t *testing.T) {
	assert.Equal(t, "H1", sensorIDFromTopic("rig/sensors/H1/value"))
	assert.Equal(t, "", sensorIDFromTopic("rig/sensors/value"))
	assert.Equal(t, "", sensorIDFromTopic("something/else"))
}
