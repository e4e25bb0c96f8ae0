package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/metrics"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
	"gorm.io/gorm"
)

// LineItemInput is one entry of the client's cart snapshot. Name and Price
// are informational; the stored snapshot comes from the catalog.
type LineItemInput struct {
	FoodID   uint
	Name     string
	Price    float64
	Quantity int
}

func (li LineItemInput) displayName() string {
	if strings.TrimSpace(li.Name) != "" {
		return li.Name
	}
	return fmt.Sprintf("#%d", li.FoodID)
}

type PlaceOrderInput struct {
	UserID         uint
	Items          []LineItemInput
	Address        *models.ShippingAddress
	Amount         float64
	PaymentMethod  string
	IdempotencyKey string
}

func (in PlaceOrderInput) validate() (models.PaymentMethod, error) {
	if len(in.Items) == 0 {
		return "", newError(ErrInvalidArgument, "No items in order")
	}
	if in.Address == nil || !in.Address.Complete() || in.Amount <= 0 || strings.TrimSpace(in.PaymentMethod) == "" {
		return "", newError(ErrInvalidArgument, "Missing required order information")
	}
	method, err := models.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return "", newError(ErrInvalidArgument, "Invalid payment method. Must be 'cod' or 'online'")
	}
	for _, item := range in.Items {
		if item.FoodID == 0 {
			return "", newError(ErrInvalidArgument, "Missing food id for %s", item.displayName())
		}
		if item.Quantity < 1 {
			return "", newError(ErrInvalidArgument, "Quantity for %s must be at least 1", item.displayName())
		}
	}
	if len(in.IdempotencyKey) > 100 {
		return "", newError(ErrInvalidArgument, "Idempotency key too long")
	}
	return method, nil
}

// OrderService places orders.
type OrderService struct {
	db        *gorm.DB
	ledger    *InventoryLedger
	pricing   Pricing
	publisher events.Publisher
}

func NewOrderService(db *gorm.DB, pricing Pricing, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &OrderService{
		db:        db,
		ledger:    NewInventoryLedger(db),
		pricing:   pricing,
		publisher: publisher,
	}
}

// PlaceOrder reserves stock for every line item and records the order in a
// single transaction. Items are checked in the order given and the first
// failure aborts the call with every earlier reservation rolled back.
//
// A repeated IdempotencyKey from the same user returns the order created by
// the first call and leaves stock alone.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	method, err := in.validate()
	if err != nil {
		metrics.OrderPlacementFailures.WithLabelValues(KindName(err)).Inc()
		return nil, err
	}

	var (
		order  models.Order
		levels []StockLevel
		replay bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IdempotencyKey != "" {
			existing, found, err := findByIdempotencyKey(ctx, tx, in.UserID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				order, replay = *existing, true
				return nil
			}
		}

		ledger := s.ledger.WithTx(tx)
		items := make([]models.OrderItem, 0, len(in.Items))
		levels = levels[:0]
		for _, line := range in.Items {
			var food models.FoodItem
			if err := tx.Where("id = ?", line.FoodID).First(&food).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return newError(ErrNotFound, "Food item %s not found", line.displayName())
				}
				return internalError("load food", err)
			}

			if food.Quantity < line.Quantity {
				return newError(ErrInsufficientStock, "Insufficient stock for %s. Available: %d", food.Name, food.Quantity)
			}
			remaining, err := ledger.Reserve(ctx, food.ID, line.Quantity)
			if err != nil {
				return err
			}
			levels = append(levels, StockLevel{FoodID: food.ID, Quantity: remaining})

			items = append(items, models.OrderItem{
				FoodID:   food.ID,
				Name:     food.Name,
				Price:    food.Price,
				Quantity: line.Quantity,
			})
		}

		if err := s.pricing.Verify(items, in.Amount); err != nil {
			return err
		}

		order = models.Order{
			UserID:        in.UserID,
			Items:         items,
			Amount:        in.Amount,
			Address:       *in.Address,
			PaymentMethod: method,
			Payment:       method == models.PaymentOnline,
			Status:        models.StatusPending,
		}
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			order.IdempotencyKey = &key
		}
		if err := tx.Create(&order).Error; err != nil {
			return internalError("save order", err)
		}
		return nil
	})

	if err != nil {
		// A concurrent request with the same key may have won the unique index.
		if in.IdempotencyKey != "" && errors.Is(err, ErrInternal) {
			if existing, found, lookupErr := findByIdempotencyKey(ctx, s.db, in.UserID, in.IdempotencyKey); lookupErr == nil && found {
				return existing, nil
			}
		}
		metrics.OrderPlacementFailures.WithLabelValues(KindName(err)).Inc()
		if errors.Is(err, ErrInternal) {
			utils.ErrorLogger.Printf("Place order for user %d failed: %v", in.UserID, err)
		}
		return nil, err
	}

	if replay {
		utils.InfoLogger.Printf("Replayed order %d for user %d (idempotency key reused)", order.ID, in.UserID)
		return &order, nil
	}

	metrics.OrdersPlaced.WithLabelValues(string(method)).Inc()
	for _, item := range order.Items {
		metrics.StockUnitsReserved.Add(float64(item.Quantity))
	}
	utils.InfoLogger.Printf("Order %d placed by user %d: %d items, amount %.2f", order.ID, order.UserID, len(order.Items), order.Amount)

	s.publish(ctx, events.New(events.EventOrderPlaced, order.UserID, order))
	for _, level := range levels {
		s.publish(ctx, events.NewAdmin(events.EventStockChanged, level))
	}
	return &order, nil
}

func (s *OrderService) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		utils.ErrorLogger.Printf("Publish %s failed: %v", evt.Type, err)
	}
}

func findByIdempotencyKey(ctx context.Context, db *gorm.DB, userID uint, key string) (*models.Order, bool, error) {
	var order models.Order
	err := db.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, internalError("lookup idempotency key", err)
	}
	return &order, true, nil
}
