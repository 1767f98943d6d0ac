package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"YellowbellPOS/app/models"

	"github.com/nats-io/nats.go"
)

// NATSPublisher forwards committed events to NATS as <prefix>.<event type>.
// nats.Conn buffers publishes, so Publish never waits on the network.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to the server at url
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("yellowbell-pos"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if prefix == "" {
		prefix = "yellowbell"
	}
	log.Printf("✅ Connected to NATS at %s", url)
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an event type is published on
func (p *NATSPublisher) Subject(eventType models.EventType) string {
	return p.prefix + "." + string(eventType)
}

// Publish implements EventSink
func (p *NATSPublisher) Publish(_ context.Context, evt models.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("⚠️ Could not encode %s for NATS: %v", evt.Type, err)
		return
	}
	if err := p.conn.Publish(p.Subject(evt.Type), data); err != nil {
		log.Printf("⚠️ NATS publish of %s failed: %v", evt.Type, err)
	}
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
