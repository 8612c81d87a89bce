package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics raccoglie i contatori del percorso di ingestione su un registry
// dedicato (niente registry globale: più istanze nei test senza conflitti).
type Metrics struct {
	reg *prometheus.Registry

	ReadingsReceived *prometheus.CounterVec
	ReadingsRejected *prometheus.CounterVec
	RowsWritten      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ReadingsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soil_readings_received_total",
			Help: "Letture accettate, per tipo di record.",
		}, []string{"type"}),
		ReadingsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soil_readings_rejected_total",
			Help: "Richieste rifiutate, per causa.",
		}, []string{"reason"}),
		RowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "soil_csv_rows_written_total",
			Help: "Righe CSV scritte, per tipo di record.",
		}, []string{"type"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
