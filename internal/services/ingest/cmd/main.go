package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Ryafar/soil-moisture-server/internal/services/ingest/app"
	"github.com/Ryafar/soil-moisture-server/internal/storage"
	"github.com/Ryafar/soil-moisture-server/pkg/mqttclient"
	"github.com/Ryafar/soil-moisture-server/pkg/tlscert"
)

func main() {
	// .env opzionale: in container/pod bastano le variabili d'ambiente
	if err := godotenv.Load(); err == nil {
		log.Println("ingest: loaded .env")
	}

	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Influx mirror (opzionale) ---
	var mirror *storage.InfluxMirror
	if cfg.InfluxEnabled {
		m, err := storage.NewInfluxMirror(cfg.Influx)
		if err != nil {
			log.Fatalf("ingest: influx mirror init failed: %v", err)
		}
		mirror = m
		defer mirror.Close()
	}

	store := storage.NewCSVStore(cfg.DataDir)
	server := app.NewServer(app.Config{
		ServerName: cfg.ServerName,
	}, store, mirror)

	// --- Bridge MQTT (opzionale) ---
	if cfg.MQTTEnabled {
		client, err := mqttclient.NewConn(ctx, &cfg.MQTT)
		if err != nil {
			log.Fatalf("ingest: mqtt connect failed: %v", err)
		}
		bridge := app.NewBridge(server)
		consumer := mqttclient.NewConsumer(client, cfg.MQTTTopic, 1, bridge.Handle)
		go func() {
			if err := consumer.Consume(ctx); err != nil {
				log.Printf("ingest: mqtt consumer stopped: %v", err)
			}
		}()
	}

	// --- HTTP(S) ---
	port := cfg.HTTPPort
	if cfg.UseHTTPS {
		port = cfg.HTTPSPort
		if err := tlscert.EnsureKeyPair(cfg.CertFile, cfg.KeyFile); err != nil {
			log.Fatalf("ingest: TLS key pair: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		scheme := "http"
		var err error
		if cfg.UseHTTPS {
			scheme = "https"
			log.Printf("ingest: listening on %s://0.0.0.0:%d", scheme, port)
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			log.Printf("ingest: listening on %s://0.0.0.0:%d", scheme, port)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	log.Printf("ingest: endpoints: POST /soil-data, GET /status, POST /test, GET /healthz, GET /metrics")
	log.Printf("ingest: data directory: %s", cfg.DataDir)

	<-ctx.Done()
	stop()
	log.Println("ingest: shutting down...")

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("ingest: shutdown complete")
}
