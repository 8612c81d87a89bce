package app

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Ryafar/soil-moisture-server/internal/storage"
)

type Config struct {
	ServerName string

	Logger *log.Logger
}

// Server è il percorso di ingestione: decodifica, log console, append CSV,
// mirror Influx (best effort), metriche. Unico stato condiviso: lo store.
type Server struct {
	cfg        Config
	store      *storage.CSVStore
	mirror     *storage.InfluxMirror // nil se il mirror non è configurato
	metrics    *Metrics
	instanceID string
}

func NewServer(cfg Config, store *storage.CSVStore, mirror *storage.InfluxMirror) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "Soil Moisture Data Server"
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		mirror:     mirror,
		metrics:    NewMetrics(),
		instanceID: uuid.NewString(),
	}
}

// Router monta le rotte. Path o metodo non riconosciuti -> 404 JSON,
// come il server originale (niente 405).
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/soil-data", s.HandleSoilData).Methods(http.MethodPost)
	r.HandleFunc("/status", s.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/test", s.HandleTest).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	nf := http.HandlerFunc(s.handleNotFound)
	r.NotFoundHandler = nf
	r.MethodNotAllowedHandler = nf
	return r
}
