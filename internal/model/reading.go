package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RecordType classifica una lettura; determina schema CSV e formato console.
type RecordType string

const (
	RecordSoil    RecordType = "soil"
	RecordBattery RecordType = "battery"
)

// Known: true solo per i tipi che hanno uno schema dedicato.
func (t RecordType) Known() bool {
	return t == RecordSoil || t == RecordBattery
}

// SensorReading è una singola lettura di telemetria inviata da un device.
type SensorReading struct {
	DeviceID        string     `json:"device_id"`
	Timestamp       time.Time  `json:"timestamp"`
	Type            RecordType `json:"type"`
	MoisturePercent float64    `json:"moisture_percent"`
	Voltage         float64    `json:"voltage"`
	RawADC          int        `json:"raw_adc"`
}

// ParseReading decodifica il payload JSON di un device in una SensorReading.
// device_id, timestamp (ms epoch) e voltage sono obbligatori; i campi
// specifici del tipo hanno default a zero, mai rifiutati.
// I numeri possono arrivare come numero JSON o come stringa numerica
// (alcuni firmware serializzano tutto come stringa).
func ParseReading(payload []byte) (SensorReading, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return SensorReading{}, &IngestError{Kind: KindMalformedRequest, Err: err}
	}

	var r SensorReading

	id, err := requireString(m, "device_id")
	if err != nil {
		return SensorReading{}, err
	}
	r.DeviceID = id

	ms, err := requireNumber(m, "timestamp")
	if err != nil {
		return SensorReading{}, err
	}
	// millisecondi epoch -> istante UTC
	r.Timestamp = time.UnixMilli(int64(ms)).UTC()

	volt, err := requireNumber(m, "voltage")
	if err != nil {
		return SensorReading{}, err
	}
	r.Voltage = volt

	// type opzionale, default soil (retro-compatibilità con i firmware vecchi)
	r.Type = RecordSoil
	if v, ok := m["type"]; ok {
		s, ok := v.(string)
		if !ok {
			return SensorReading{}, &IngestError{Kind: KindInvalidFieldType, Field: "type"}
		}
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			r.Type = RecordType(s)
		}
	}

	r.MoisturePercent = optionalNumber(m, "moisture_percent")
	r.RawADC = int(optionalNumber(m, "raw_adc"))

	return r, nil
}

func requireString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", &IngestError{Kind: KindMissingField, Field: key}
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", &IngestError{Kind: KindInvalidFieldType, Field: key}
	}
	return s, nil
}

func requireNumber(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, &IngestError{Kind: KindMissingField, Field: key}
	}
	f, ok := asNumber(v)
	if !ok {
		return 0, &IngestError{Kind: KindInvalidFieldType, Field: key}
	}
	return f, nil
}

func optionalNumber(m map[string]any, key string) float64 {
	if v, ok := m[key]; ok {
		if f, ok := asNumber(v); ok {
			return f
		}
	}
	return 0
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
