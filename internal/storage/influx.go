package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sony/gobreaker"

	"github.com/Ryafar/soil-moisture-server/internal/model"
)

// Configurazione Influx per il mirror delle letture accettate.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string // es. "soil_moisture"

	BreakerFailures int
	BreakerOpenFor  time.Duration
}

// InfluxMirror replica su InfluxDB le letture già persistite su CSV.
// Il CSV resta la fonte di verità: un errore del mirror non deve mai
// far fallire la richiesta del device. Il breaker evita di martellare
// un Influx giù ad ogni lettura.
type InfluxMirror struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	breaker     *gobreaker.CircuitBreaker
	measurement string
}

func NewInfluxMirror(cfg InfluxConfig) (*InfluxMirror, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = "soil_moisture"
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 30 * time.Second
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "influx-mirror",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
	})

	return &InfluxMirror{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		breaker:     cb,
		measurement: cfg.Measurement,
	}, nil
}

// Mirror scrive un punto per la lettura. Best effort: l'errore viene
// ritornato solo per logging, mai propagato al client HTTP.
func (m *InfluxMirror) Mirror(ctx context.Context, r model.SensorReading) error {
	if m == nil {
		return nil
	}
	_, err := m.breaker.Execute(func() (any, error) {
		tags := map[string]string{
			"device_id": r.DeviceID,
			"data_type": string(r.Type),
		}
		fields := map[string]interface{}{
			"voltage": r.Voltage,
		}
		if r.Type != model.RecordBattery {
			fields["moisture_percent"] = r.MoisturePercent
			fields["raw_adc"] = r.RawADC
		}
		point := influxdb2.NewPoint(m.measurement, tags, fields, r.Timestamp)
		return nil, m.writeAPI.WritePoint(ctx, point)
	})
	if err != nil {
		log.Printf("influx mirror: write skipped/failed: %v", err)
	}
	return err
}

func (m *InfluxMirror) Close() {
	if m != nil && m.client != nil {
		m.client.Close()
	}
}
