package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Ryafar/soil-moisture-server/internal/model"
)

// HandleSoilData: POST /soil-data. Decodifica la lettura, la logga,
// la appende al ledger CSV e (se configurato) la replica su Influx.
func (s *Server) HandleSoilData(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(r)
	if err != nil {
		s.reject(w, err)
		return
	}

	reading, err := s.Ingest(r.Context(), payload, "http")
	if err != nil {
		s.reject(w, err)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"message":   "Data received and saved",
		"timestamp": reading.Timestamp.UTC().Format(time.RFC3339),
	})
}

// Ingest è il percorso condiviso tra HTTP e bridge MQTT.
func (s *Server) Ingest(ctx context.Context, payload []byte, source string) (model.SensorReading, error) {
	reading, err := model.ParseReading(payload)
	if err != nil {
		s.metrics.ReadingsRejected.WithLabelValues(model.KindOf(err).String()).Inc()
		s.cfg.Logger.Printf("ingest(%s): rejected: %v", source, err)
		return model.SensorReading{}, err
	}

	s.logReading(reading)

	if _, err := s.store.Append(reading); err != nil {
		s.metrics.ReadingsRejected.WithLabelValues(model.KindOf(err).String()).Inc()
		s.cfg.Logger.Printf("ingest(%s): csv append failed: %v", source, err)
		return model.SensorReading{}, err
	}

	s.metrics.ReadingsReceived.WithLabelValues(string(reading.Type)).Inc()
	s.metrics.RowsWritten.WithLabelValues(string(reading.Type)).Inc()

	// mirror best effort: il CSV è già scritto, la richiesta è a posto
	if s.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_ = s.mirror.Mirror(mctx, reading)
		cancel()
	}

	return reading, nil
}

// logReading stampa il riepilogo console, formato per tipo come il
// server originale; i tipi sconosciuti vengono segnalati ma loggati.
func (s *Server) logReading(r model.SensorReading) {
	ts := r.Timestamp.UTC().Format(time.RFC3339)
	switch {
	case r.Type == model.RecordBattery:
		s.cfg.Logger.Printf("[%s] device=%s battery voltage=%.3fV", ts, r.DeviceID, r.Voltage)
	case r.Type.Known():
		s.cfg.Logger.Printf("[%s] device=%s moisture=%.1f%% voltage=%.3fV raw_adc=%d",
			ts, r.DeviceID, r.MoisturePercent, r.Voltage, r.RawADC)
	default:
		s.cfg.Logger.Printf("[%s] device=%s type=%q (unrecognized) moisture=%.1f%% voltage=%.3fV raw_adc=%d",
			ts, r.DeviceID, string(r.Type), r.MoisturePercent, r.Voltage, r.RawADC)
	}
}

// HandleStatus: GET /status, identità del server e orologio corrente.
func (s *Server) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "running",
		"server":      s.cfg.ServerName,
		"instance_id": s.instanceID,
		"time":        time.Now().UTC().Format(time.RFC3339),
		"endpoints":   []string{"/soil-data (POST)", "/status (GET)", "/test (POST)"},
	})
}

// HandleTest: POST /test, liveness senza effetti collaterali.
func (s *Server) HandleTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "server_running",
		"message": "Soil sensor server is active",
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"status":  "error",
		"message": "Endpoint not found",
	})
}

func (s *Server) reject(w http.ResponseWriter, err error) {
	writeJSON(w, model.HTTPStatus(err), map[string]any{
		"status":  "error",
		"message": err.Error(),
	})
}

// readBody legge esattamente Content-Length byte; body assente, troncato
// o non dichiarato -> MalformedRequest.
func readBody(r *http.Request) ([]byte, error) {
	if r.ContentLength <= 0 {
		return nil, &model.IngestError{Kind: model.KindMalformedRequest,
			Err: fmt.Errorf("missing or empty request body")}
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, r.ContentLength))
	if err != nil {
		return nil, &model.IngestError{Kind: model.KindMalformedRequest, Err: err}
	}
	if int64(len(payload)) < r.ContentLength {
		return nil, &model.IngestError{Kind: model.KindMalformedRequest,
			Err: fmt.Errorf("body shorter than declared Content-Length")}
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
