package sensor_simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// ====== Tunables ======
const (
	// decayPerMin: deriva della moisture quando non piove/irriga, %/minuto.
	decayPerMin = 0.05

	// adcDry / adcWet: estremi raw del sensore capacitivo (CSM v2).
	adcDry = 3200
	adcWet = 1200

	// voltFull / voltEmpty: finestra di scarica della LiPo.
	voltFull  = 4.15
	voltEmpty = 3.30

	// voltSagPerHour: scarica simulata, V/ora.
	voltSagPerHour = 0.002
)

// SoilPayload è il JSON che il firmware manda a POST /soil-data.
type SoilPayload struct {
	DeviceID        string  `json:"device_id"`
	Timestamp       int64   `json:"timestamp"` // ms epoch
	Type            string  `json:"type,omitempty"`
	MoisturePercent float64 `json:"moisture_percent"`
	Voltage         float64 `json:"voltage"`
	RawADC          int     `json:"raw_adc"`
}

// BatteryPayload è il report periodico del battery monitor.
type BatteryPayload struct {
	DeviceID  string  `json:"device_id"`
	Timestamp int64   `json:"timestamp"`
	Type      string  `json:"type"`
	Voltage   float64 `json:"voltage"`
}

// Generator mantiene lo stato interno (moisture e batteria) e lo fa
// evolvere nel tempo con un po' di rumore, al posto dell'ESP32 vero.
type Generator struct {
	mu       sync.Mutex
	moisture float64 // percento [0..100]
	voltage  float64
	last     time.Time
	rng      *rand.Rand
	now      func() time.Time
}

func NewGenerator(seedMoisture float64, seed int64) *Generator {
	if seedMoisture <= 0 || seedMoisture > 100 {
		seedMoisture = 42.0
	}
	return &Generator{
		moisture: seedMoisture,
		voltage:  voltFull,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

// NextSoil fa avanzare lo stato e produce una lettura soil.
func (g *Generator) NextSoil(deviceID string) SoilPayload {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.advance()
	return SoilPayload{
		DeviceID:        deviceID,
		Timestamp:       now.UnixMilli(),
		Type:            "soil",
		MoisturePercent: round1(g.moisture),
		Voltage:         round3(g.voltage),
		RawADC:          g.rawADC(),
	}
}

// NextBattery produce il report batteria senza campi soil.
func (g *Generator) NextBattery(deviceID string) BatteryPayload {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.advance()
	return BatteryPayload{
		DeviceID:  deviceID,
		Timestamp: now.UnixMilli(),
		Type:      "battery",
		Voltage:   round3(g.voltage),
	}
}

// advance applica deriva e rumore in funzione del tempo trascorso.
// Chiamare con il lock preso.
func (g *Generator) advance() time.Time {
	now := g.now()
	if !g.last.IsZero() {
		dtMin := now.Sub(g.last).Minutes()
		if dtMin > 0 {
			g.moisture = clampPct(g.moisture - decayPerMin*dtMin + g.rng.Float64()*0.4 - 0.2)
			g.voltage = math.Max(voltEmpty, g.voltage-voltSagPerHour*dtMin/60)
		}
	}
	g.last = now
	return now
}

func (g *Generator) rawADC() int {
	span := float64(adcDry - adcWet)
	raw := float64(adcDry) - g.moisture/100*span + float64(g.rng.Intn(21)-10)
	if raw < 0 {
		raw = 0
	}
	return int(raw)
}

func clampPct(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
