package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subjects for change notifications.
const (
	SubjectInventoryChanged = "inventory.changed"
	SubjectCartCleared      = "cart.cleared"
)

// NATSPublisher publishes JSON change events to NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to a NATS server.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("vanir-checkout"))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

func (p *NATSPublisher) InventoryChanged(ctx context.Context, productIDs []string) {
	p.publish(SubjectInventoryChanged, InventoryChangedEvent{
		Type:       TypeInventoryChanged,
		ProductIDs: productIDs,
	})
}

func (p *NATSPublisher) CartCleared(ctx context.Context, userID string) {
	p.publish(SubjectCartCleared, CartClearedEvent{
		Type:   TypeCartCleared,
		UserID: userID,
	})
}

func (p *NATSPublisher) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal notification", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		// Best-effort delivery: log and move on.
		p.logger.Error("failed to publish notification", "subject", subject, "error", err)
	}
}
