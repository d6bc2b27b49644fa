package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event types published on the catalog subject space.
const (
	ProductIntegrated   = "catalog.product.integrated"
	ProductDeduplicated = "catalog.product.deduplicated"
	ProductTombstoned   = "catalog.product.tombstoned"
	BatchCompleted      = "catalog.batch.completed"
)

// CatalogEvent is the envelope every published event shares.
type CatalogEvent struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	TenantID  string      `json:"tenantId"`
	Supplier  string      `json:"supplier,omitempty"`
	EntityID  string      `json:"entityId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Publisher fans catalog events out over NATS for downstream audit
// consumers. All methods are nil-safe so the service runs unchanged when
// NATS is not configured.
type Publisher struct {
	conn *nats.Conn
	log  *logrus.Entry
}

// NewPublisher connects to NATS at natsURL.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("supplier-catalog-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Publisher{
		conn: conn,
		log:  logger.WithField("component", "catalog-events"),
	}, nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// Publish sends one event on "<type>.<tenant>". Publish failures are logged
// and swallowed; eventing never blocks the pipeline.
func (p *Publisher) Publish(eventType, tenantID, supplier, entityID string, data interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	event := CatalogEvent{
		ID:        uuid.New(),
		Type:      eventType,
		TenantID:  tenantID,
		Supplier:  supplier,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Warn("failed to marshal event")
		return
	}
	subject := fmt.Sprintf("%s.%s", eventType, tenantID)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}
