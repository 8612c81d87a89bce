package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Ryafar/soil-moisture-server/internal/storage"
	"github.com/Ryafar/soil-moisture-server/pkg/mqttclient"
)

type Config struct {
	DataDir    string
	ServerName string

	HTTPPort  int
	HTTPSPort int
	UseHTTPS  bool
	CertFile  string
	KeyFile   string

	// Bridge MQTT opzionale (i device possono pubblicare invece di fare POST)
	MQTTEnabled bool
	MQTT        mqttclient.Config
	MQTTTopic   string

	// Mirror Influx opzionale
	InfluxEnabled bool
	Influx        storage.InfluxConfig

	ShutdownGrace time.Duration
}

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

func envBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func loadConfig() Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "soil-server"
	}

	return Config{
		DataDir:    envStr("DATA_DIR", "soil_data"),
		ServerName: envStr("SERVER_NAME", "Soil Moisture Data Server"),

		HTTPPort:  envInt("HTTP_PORT", 8080),
		HTTPSPort: envInt("HTTPS_PORT", 8443),
		UseHTTPS:  envBool("USE_HTTPS", false),
		CertFile:  envStr("TLS_CERT_FILE", "cert.pem"),
		KeyFile:   envStr("TLS_KEY_FILE", "key.pem"),

		MQTTEnabled: envBool("MQTT_ENABLED", false),
		MQTT: mqttclient.Config{
			Host:     envStr("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", "guest"),
			Password: envStr("MQTT_PASSWORD", "guest"),
			ClientID: envStr("MQTT_CLIENT_ID", hostname),
		},
		MQTTTopic: envStr("MQTT_TOPIC", "sensor/soil-data/#"),

		InfluxEnabled: envBool("INFLUX_ENABLED", false),
		Influx: storage.InfluxConfig{
			URL:             envStr("INFLUX_URL", "http://localhost:8086"),
			Token:           os.Getenv("INFLUX_TOKEN"),
			Org:             envStr("INFLUX_ORG", "soil"),
			Bucket:          envStr("INFLUX_BUCKET", "telemetry"),
			Measurement:     envStr("INFLUX_MEASUREMENT", "soil_moisture"),
			BreakerFailures: envInt("INFLUX_BREAKER_FAILS", 3),
			BreakerOpenFor:  time.Duration(envInt("INFLUX_BREAKER_OPEN_MS", 30000)) * time.Millisecond,
		},

		ShutdownGrace: time.Duration(envInt("SHUTDOWN_GRACE_MS", 5000)) * time.Millisecond,
	}
}
