package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohoonk/roomdetect/floorplan"
)

const rectanglePayload = `{"walls": [
  {"type": "line", "start": [0, 0], "end": [400, 0], "is_load_bearing": true},
  {"type": "line", "start": [400, 0], "end": [400, 300]},
  {"type": "line", "start": [400, 300], "end": [0, 300]},
  {"type": "line", "start": [0, 300], "end": [0, 0]}
]}`

func mqttTestConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{Broker: "tcp://localhost:1883"},
		Sources: []SourceConfig{
			{ID: "level-1", Topic: "plans/level-1/walls"},
			{ID: "level-2", Topic: "plans/level-2/walls"},
			{ID: "remote", URL: "http://plans.local/remote.json"},
		},
	}
}

func TestInitMQTT_Disabled(t *testing.T) {
	config := &Config{Sources: []SourceConfig{{ID: "a", URL: "http://x"}}}

	client, err := InitMQTT(config, func(string, []floorplan.WallSegment, error) {})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestInitMQTT_NoTopics(t *testing.T) {
	config := &Config{
		MQTT:    MQTTConfig{Broker: "tcp://localhost:1883"},
		Sources: []SourceConfig{{ID: "a", URL: "http://x"}},
	}

	_, err := InitMQTT(config, func(string, []floorplan.WallSegment, error) {})
	assert.Error(t, err)
}

func TestMQTTClient_IsConnected(t *testing.T) {
	client := &MQTTClient{}
	assert.False(t, client.IsConnected(), "New client should not be connected")

	client.setConnected(true)
	assert.True(t, client.IsConnected())

	client.setConnected(false)
	assert.False(t, client.IsConnected())
}

func TestMQTTClient_SubscribesToSourceTopics(t *testing.T) {
	mock := NewMockClient()
	client := newMQTTClientWithMock(mock, mqttTestConfig(), nil)
	mock.SetOnConnect(client.onConnect)

	token := mock.Connect()
	require.NoError(t, token.Error())

	assert.True(t, client.IsConnected())
	assert.True(t, mock.Subscribed("plans/level-1/walls"))
	assert.True(t, mock.Subscribed("plans/level-2/walls"))
	assert.False(t, mock.Subscribed(""), "URL sources have no topic")
}

func TestMQTTClient_DeliversSegments(t *testing.T) {
	var (
		mu       sync.Mutex
		gotID    string
		gotSegs  []floorplan.WallSegment
		gotError error
	)
	handler := func(id string, segs []floorplan.WallSegment, err error) {
		mu.Lock()
		defer mu.Unlock()
		gotID, gotSegs, gotError = id, segs, err
	}

	mock := NewMockClient()
	client := newMQTTClientWithMock(mock, mqttTestConfig(), handler)
	mock.SetOnConnect(client.onConnect)
	mock.Connect()

	mock.SimulateMessage("plans/level-1/walls", []byte(rectanglePayload))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "level-1", gotID)
	assert.NoError(t, gotError)
	require.Len(t, gotSegs, 4)
	assert.True(t, gotSegs[0].LoadBearing)
}

func TestMQTTClient_InvalidPayload(t *testing.T) {
	var gotError error
	mock := NewMockClient()
	client := newMQTTClientWithMock(mock, mqttTestConfig(), func(_ string, _ []floorplan.WallSegment, err error) {
		gotError = err
	})
	mock.SetOnConnect(client.onConnect)
	mock.Connect()

	mock.SimulateMessage("plans/level-2/walls", []byte(`[{"start": [1, 1], "end": [1, 1]}]`))

	require.Error(t, gotError)
	assert.True(t, errors.Is(gotError, floorplan.ErrInvalidSegment))
}

func TestMQTTClient_Disconnect(t *testing.T) {
	mock := NewMockClient()
	client := newMQTTClientWithMock(mock, mqttTestConfig(), nil)
	mock.Connect()
	client.setConnected(true)

	client.Disconnect()
	assert.False(t, client.IsConnected())
	assert.False(t, mock.IsConnected())
}
