package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Ryafar/soil-moisture-server/internal/model"
)

// Layout dei timestamp nelle righe CSV (ISO-8601 senza offset, sempre UTC).
const rowTimeLayout = "2006-01-02T15:04:05"

var (
	soilHeader    = []string{"timestamp", "device_id", "moisture_percent", "voltage", "raw_adc", "data_type"}
	batteryHeader = []string{"timestamp", "device_id", "voltage", "data_type"}
)

// CSVStore appende le letture su file CSV partizionati per (giorno UTC, tipo).
// Un file cresce per sempre: la rotazione è un problema di chi fa deploy.
type CSVStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // un lock per file di destinazione

	now func() time.Time // iniettabile nei test
}

func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

// Append scrive una riga nel ledger del giorno corrente per il tipo della
// lettura, creando directory, file e header alla prima scrittura.
// La sequenza stat -> header -> riga è una sezione critica per file:
// l'append di default non rende atomico il check dell'header.
// Ritorna il path del file scritto.
func (s *CSVStore) Append(r model.SensorReading) (string, error) {
	path := filepath.Join(s.dir, s.fileName(r.Type))

	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &model.IngestError{Kind: model.KindPersistenceFailure, Err: err}
	}

	// header solo se il file non esiste ancora (sopravvive ai restart)
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", &model.IngestError{Kind: model.KindPersistenceFailure, Err: err}
	}

	w := csv.NewWriter(f)
	if writeHeader {
		_ = w.Write(headerFor(r.Type))
	}
	_ = w.Write(rowFor(r))
	w.Flush()

	if err := w.Error(); err != nil {
		_ = f.Close()
		return "", &model.IngestError{Kind: model.KindPersistenceFailure, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &model.IngestError{Kind: model.KindPersistenceFailure, Err: err}
	}
	return path, nil
}

func (s *CSVStore) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// fileName: es. soil_data_20231114.csv, battery_data_20231114.csv.
// Il giorno di partizione è la data corrente del server (UTC), come
// nel server originale; i tag sconosciuti finiscono in un ledger proprio.
func (s *CSVStore) fileName(t model.RecordType) string {
	day := s.now().UTC().Format("20060102")
	return fmt.Sprintf("%s_data_%s.csv", sanitizeTag(string(t)), day)
}

func headerFor(t model.RecordType) []string {
	if t == model.RecordBattery {
		return batteryHeader
	}
	return soilHeader
}

// rowFor costruisce l'intera riga prima di toccare il file: o tutto o niente.
func rowFor(r model.SensorReading) []string {
	ts := r.Timestamp.UTC().Format(rowTimeLayout)
	if r.Type == model.RecordBattery {
		return []string{ts, r.DeviceID, formatFloat(r.Voltage), string(r.Type)}
	}
	return []string{
		ts,
		r.DeviceID,
		formatFloat(r.MoisturePercent),
		formatFloat(r.Voltage),
		strconv.Itoa(r.RawADC),
		string(r.Type),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// sanitizeTag limita i tag dei record ai caratteri sicuri per un filename.
func sanitizeTag(s string) string {
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
