package app_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ryafar/soil-moisture-server/internal/services/ingest/app"
)

// fakeMessage implementa mqtt.Message per i test del bridge.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestBridgeIngestsAndDeduplicates(t *testing.T) {
	srv, dir := newTestServer(t)
	bridge := app.NewBridge(srv)

	msg := &fakeMessage{
		topic:   "sensor/soil-data/esp32-1",
		payload: []byte(`{"device_id":"esp32-1","timestamp":1700000000000,"moisture_percent":42.5,"voltage":3.3,"raw_adc":512}`),
	}

	// prima consegna: scrive; redelivery identica: soppressa
	require.NoError(t, bridge.Handle(msg.Topic(), msg))
	require.NoError(t, bridge.Handle(msg.Topic(), msg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data))) // header + 1 riga

	// payload diverso: passa
	other := &fakeMessage{
		topic:   msg.topic,
		payload: []byte(`{"device_id":"esp32-1","timestamp":1700000001000,"moisture_percent":42.4,"voltage":3.3,"raw_adc":513}`),
	}
	require.NoError(t, bridge.Handle(other.Topic(), other))

	data, err = os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Equal(t, 3, countLines(string(data)))
}

func TestBridgeRejectsInvalidPayload(t *testing.T) {
	srv, dir := newTestServer(t)
	bridge := app.NewBridge(srv)

	msg := &fakeMessage{topic: "sensor/soil-data/esp32-1", payload: []byte(`{"voltage":3.3}`)}
	err := bridge.Handle(msg.Topic(), msg)
	require.Error(t, err)
	assert.Empty(t, dirEntries(t, dir))
}

func countLines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
