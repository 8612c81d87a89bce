package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	sim "github.com/Ryafar/soil-moisture-server/internal/sensor-simulator"
	"github.com/Ryafar/soil-moisture-server/pkg/mqttclient"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Il simulatore fa le veci dell'ESP32: letture soil a intervallo fisso,
// un report batteria ogni batteryEvery invii. Trasporto HTTP (default)
// o MQTT, come i due sender del firmware.
func main() {
	_ = godotenv.Load()

	serverURL := envStr("SERVER_URL", "http://localhost:8080/soil-data")
	deviceID := envStr("DEVICE_ID", "esp32-sim-"+uuid.NewString()[:8])
	interval := time.Duration(envInt("INTERVAL_MS", 5000)) * time.Millisecond
	batteryEvery := envInt("BATTERY_EVERY", 12)
	useMQTT := envStr("TRANSPORT", "http") == "mqtt"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher *mqttclient.Publisher
	if useMQTT {
		client, err := mqttclient.NewConn(ctx, &mqttclient.Config{
			Host:     envStr("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", "guest"),
			Password: envStr("MQTT_PASSWORD", "guest"),
			ClientID: deviceID,
		})
		if err != nil {
			log.Fatalf("simulator: mqtt connect failed: %v", err)
		}
		publisher = mqttclient.NewPublisher(client, "sensor/soil-data/"+deviceID, 1)
	}

	gen := sim.NewGenerator(float64(envInt("SEED_MOISTURE", 42)), time.Now().UnixNano())
	httpClient := &http.Client{Timeout: 10 * time.Second}

	log.Printf("simulator: device=%s interval=%s transport=%s", deviceID, interval,
		map[bool]string{true: "mqtt", false: "http"}[useMQTT])

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Println("simulator: stopped")
			return
		case <-ticker.C:
		}

		var payload any
		if batteryEvery > 0 && sent > 0 && sent%batteryEvery == 0 {
			payload = gen.NextBattery(deviceID)
		} else {
			payload = gen.NextSoil(deviceID)
		}
		sent++

		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("simulator: marshal: %v", err)
			continue
		}

		if useMQTT {
			if err := publisher.Publish(body); err != nil {
				log.Printf("simulator: publish failed: %v", err)
			}
			continue
		}

		if err := postWithRetry(ctx, httpClient, serverURL, body); err != nil {
			log.Printf("simulator: POST failed: %v", err)
		}
	}
}

// postWithRetry riprova con backoff esponenziale, come fa il firmware
// quando il WiFi balla.
func postWithRetry(ctx context.Context, client *http.Client, url string, body []byte) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 8 * time.Second

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error: %s", resp.Status)
		default:
			// 4xx: ritentare non cambia nulla
			return backoff.Permanent(fmt.Errorf("rejected: %s", resp.Status))
		}
	}, backoff.WithContext(bo, ctx))
}
