package services

import (
	"context"
	"errors"

	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/metrics"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
	"gorm.io/gorm"
)

// OrderStateMachine owns every status change of an order. The rules live in
// models.OrderStatus.CanTransitionTo; this type applies them against the
// database and performs the inventory side effect of cancellation.
type OrderStateMachine struct {
	db        *gorm.DB
	ledger    *InventoryLedger
	publisher events.Publisher
}

func NewOrderStateMachine(db *gorm.DB, publisher events.Publisher) *OrderStateMachine {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &OrderStateMachine{
		db:        db,
		ledger:    NewInventoryLedger(db),
		publisher: publisher,
	}
}

// Transition moves an order to next on behalf of an admin. Moving to
// cancelled goes through Cancel so that stock is released.
func (m *OrderStateMachine) Transition(ctx context.Context, orderID uint, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, newError(ErrInvalidTransition, "Invalid status")
	}
	if next == models.StatusCancelled {
		return m.Cancel(ctx, orderID, Principal{Role: models.RoleAdmin})
	}

	var order models.Order
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrNotFound, "Order not found")
			}
			return internalError("load order", err)
		}

		current := order.Status
		if !current.CanTransitionTo(next) {
			return newError(ErrInvalidTransition, "Cannot change status from %s to %s", current, next)
		}

		// Guard on the status we read so a concurrent change is not overwritten.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, current).
			Update("status", next)
		if res.Error != nil {
			return internalError("update status", res.Error)
		}
		if res.RowsAffected == 0 && current != next {
			return newError(ErrInvalidTransition, "Order status changed concurrently, retry")
		}

		return tx.Preload("Items").Where("id = ?", orderID).First(&order).Error
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInternal) {
			err = internalError("reload order", err)
		}
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(next)).Inc()
	utils.InfoLogger.Printf("Order %d moved to %s", order.ID, order.Status)
	m.publish(ctx, events.New(events.EventOrderStatus, order.UserID, order))
	return &order, nil
}

// Cancel releases every line item back to inventory and marks the order
// cancelled. Only pending orders can be cancelled, and only by their owner
// or an admin; anyone else gets ErrNotFound.
func (m *OrderStateMachine) Cancel(ctx context.Context, orderID uint, p Principal) (*models.Order, error) {
	var (
		order    models.Order
		levels   []StockLevel
		released int
	)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrNotFound, "Order not found")
			}
			return internalError("load order", err)
		}
		if !p.canSee(order.UserID) {
			return newError(ErrNotFound, "Order not found")
		}
		if !order.Status.CanTransitionTo(models.StatusCancelled) {
			return newError(ErrInvalidTransition, "Cannot cancel order. Order is already being processed.")
		}

		// Flip the status first, conditionally, so two concurrent cancels
		// cannot both release the same stock.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.StatusPending).
			Update("status", models.StatusCancelled)
		if res.Error != nil {
			return internalError("cancel order", res.Error)
		}
		if res.RowsAffected == 0 {
			return newError(ErrInvalidTransition, "Cannot cancel order. Order is already being processed.")
		}

		ledger := m.ledger.WithTx(tx)
		levels, released = levels[:0], 0
		for _, item := range order.Items {
			remaining, err := ledger.Release(ctx, item.FoodID, item.Quantity)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					// The food was removed from the catalog; nothing to return stock to.
					utils.InfoLogger.Warnf("Order %d: food %d no longer exists, skipping release of %d", order.ID, item.FoodID, item.Quantity)
					continue
				}
				return err
			}
			levels = append(levels, StockLevel{FoodID: item.FoodID, Quantity: remaining})
			released += item.Quantity
		}

		order.Status = models.StatusCancelled
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInternal) {
			utils.ErrorLogger.Printf("Cancel order %d failed: %v", orderID, err)
		}
		return nil, err
	}

	metrics.OrdersCancelled.Inc()
	metrics.StatusTransitions.WithLabelValues(string(models.StatusCancelled)).Inc()
	metrics.StockUnitsReleased.Add(float64(released))
	utils.InfoLogger.Printf("Order %d cancelled, %d units returned to stock", order.ID, released)

	m.publish(ctx, events.New(events.EventOrderCancelled, order.UserID, order))
	for _, level := range levels {
		m.publish(ctx, events.NewAdmin(events.EventStockChanged, level))
	}
	return &order, nil
}

func (m *OrderStateMachine) publish(ctx context.Context, evt events.Event) {
	if err := m.publisher.Publish(ctx, evt); err != nil {
		utils.ErrorLogger.Printf("Publish %s failed: %v", evt.Type, err)
	}
}
