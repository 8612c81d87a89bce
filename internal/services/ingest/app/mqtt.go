package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Ryafar/soil-moisture-server/pkg/dedup"
)

// Bridge collega il topic MQTT dei device allo stesso percorso di
// ingestione del POST /soil-data. Il topic viaggia a QoS1: possibili
// redelivery, deduplichiamo per hash del payload come fa il broker path
// degli eventi.
type Bridge struct {
	server *Server
	seen   *dedup.Deduper
}

func NewBridge(server *Server) *Bridge {
	return &Bridge{
		server: server,
		seen:   dedup.New(10*time.Minute, 20000),
	}
}

// Handle è il mqttclient.Handler del consumer.
func (b *Bridge) Handle(_ string, m mqtt.Message) error {
	h := sha256.Sum256(m.Payload())
	if !b.seen.First(hex.EncodeToString(h[:])) {
		return nil
	}
	_, err := b.server.Ingest(context.Background(), m.Payload(), "mqtt")
	return err
}
