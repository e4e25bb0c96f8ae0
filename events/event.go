package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventOrderPlaced    = "order_placed"
	EventOrderStatus    = "order_status"
	EventOrderCancelled = "order_cancelled"
	EventStockChanged   = "stock_changed"
	EventLowStock       = "low_stock"
)

// Event is what subscribers receive. UserID scopes an event to one customer
// (admins see everything); zero means it is not tied to a customer.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"event"`
	UserID    uint        `json:"user_id,omitempty"`
	AdminOnly bool        `json:"-"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func New(eventType string, userID uint, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdmin builds an event only admins receive.
func NewAdmin(eventType string, data interface{}) Event {
	evt := New(eventType, 0, data)
	evt.AdminOnly = true
	return evt
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
