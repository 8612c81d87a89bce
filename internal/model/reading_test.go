package model_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ryafar/soil-moisture-server/internal/model"
)

func TestParseReadingSoil(t *testing.T) {
	payload := []byte(`{"device_id":"esp32-1","timestamp":1700000000000,"moisture_percent":42.5,"voltage":3.3,"raw_adc":512}`)

	r, err := model.ParseReading(payload)
	require.NoError(t, err)

	assert.Equal(t, "esp32-1", r.DeviceID)
	assert.Equal(t, model.RecordSoil, r.Type)
	assert.Equal(t, 42.5, r.MoisturePercent)
	assert.Equal(t, 3.3, r.Voltage)
	assert.Equal(t, 512, r.RawADC)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), r.Timestamp)
}

func TestParseReadingBatteryDefaults(t *testing.T) {
	payload := []byte(`{"device_id":"esp32-1","timestamp":1700000000000,"voltage":3.91,"type":"battery"}`)

	r, err := model.ParseReading(payload)
	require.NoError(t, err)

	assert.Equal(t, model.RecordBattery, r.Type)
	assert.Zero(t, r.MoisturePercent)
	assert.Zero(t, r.RawADC)
}

func TestParseReadingUnknownType(t *testing.T) {
	payload := []byte(`{"device_id":"esp32-1","timestamp":1700000000000,"voltage":3.3,"type":"Wind "}`)

	r, err := model.ParseReading(payload)
	require.NoError(t, err)

	assert.Equal(t, model.RecordType("wind"), r.Type)
	assert.False(t, r.Type.Known())
}

func TestParseReadingNumericStrings(t *testing.T) {
	// certi firmware serializzano i numeri come stringhe
	payload := []byte(`{"device_id":"esp32-1","timestamp":"1700000000000","voltage":"3.3","moisture_percent":"42.5","raw_adc":"512"}`)

	r, err := model.ParseReading(payload)
	require.NoError(t, err)

	assert.Equal(t, 3.3, r.Voltage)
	assert.Equal(t, 42.5, r.MoisturePercent)
	assert.Equal(t, 512, r.RawADC)
}

func TestParseReadingMissingFields(t *testing.T) {
	cases := map[string]string{
		"device_id": `{"timestamp":1700000000000,"voltage":3.3}`,
		"timestamp": `{"device_id":"esp32-1","voltage":3.3}`,
		"voltage":   `{"device_id":"esp32-1","timestamp":1700000000000}`,
	}
	for field, payload := range cases {
		_, err := model.ParseReading([]byte(payload))
		require.Error(t, err, field)

		var ie *model.IngestError
		require.True(t, errors.As(err, &ie), field)
		assert.Equal(t, model.KindMissingField, ie.Kind, field)
		assert.Equal(t, field, ie.Field)
	}
}

func TestParseReadingWrongFieldType(t *testing.T) {
	_, err := model.ParseReading([]byte(`{"device_id":7,"timestamp":1700000000000,"voltage":3.3}`))
	assert.Equal(t, model.KindInvalidFieldType, model.KindOf(err))

	_, err = model.ParseReading([]byte(`{"device_id":"x","timestamp":true,"voltage":3.3}`))
	assert.Equal(t, model.KindInvalidFieldType, model.KindOf(err))
}

func TestParseReadingMalformedJSON(t *testing.T) {
	_, err := model.ParseReading([]byte(`{not json`))
	assert.Equal(t, model.KindMalformedRequest, model.KindOf(err))
}

func TestHTTPStatusMapping(t *testing.T) {
	client := &model.IngestError{Kind: model.KindMissingField, Field: "voltage"}
	server := &model.IngestError{Kind: model.KindPersistenceFailure}

	assert.Equal(t, http.StatusBadRequest, model.HTTPStatus(client))
	assert.Equal(t, http.StatusInternalServerError, model.HTTPStatus(server))
}
