package services

import (
	"context"
	"errors"

	"github.com/yeremiapane/farm-to-table/models"
	"gorm.io/gorm"
)

// InventoryLedger is the only writer of FoodItem.Quantity. Each operation is
// a single conditional UPDATE, so two concurrent reservations can never both
// succeed against stock that covers only one of them.
type InventoryLedger struct {
	db *gorm.DB
}

func NewInventoryLedger(db *gorm.DB) *InventoryLedger {
	return &InventoryLedger{db: db}
}

// WithTx returns a ledger whose writes join tx.
func (l *InventoryLedger) WithTx(tx *gorm.DB) *InventoryLedger {
	return &InventoryLedger{db: tx}
}

// Reserve takes qty units of foodID out of stock and returns what is left.
func (l *InventoryLedger) Reserve(ctx context.Context, foodID uint, qty int) (int, error) {
	if qty <= 0 {
		return 0, newError(ErrInvalidArgument, "Quantity must be at least 1")
	}

	res := l.db.WithContext(ctx).Model(&models.FoodItem{}).
		Where("id = ? AND quantity >= ?", foodID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return 0, internalError("reserve stock", res.Error)
	}

	food, err := l.find(ctx, foodID)
	if err != nil {
		return 0, err
	}
	if res.RowsAffected == 0 {
		return food.Quantity, newError(ErrInsufficientStock, "Insufficient stock for %s. Available: %d", food.Name, food.Quantity)
	}
	return food.Quantity, nil
}

// Release puts qty units of foodID back. There is no upper bound.
func (l *InventoryLedger) Release(ctx context.Context, foodID uint, qty int) (int, error) {
	if qty <= 0 {
		return 0, newError(ErrInvalidArgument, "Quantity must be at least 1")
	}

	res := l.db.WithContext(ctx).Model(&models.FoodItem{}).
		Where("id = ?", foodID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return 0, internalError("release stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, newError(ErrNotFound, "Food item not found")
	}

	food, err := l.find(ctx, foodID)
	if err != nil {
		return 0, err
	}
	return food.Quantity, nil
}

// SetQuantity is the administrative override of a food's stock.
func (l *InventoryLedger) SetQuantity(ctx context.Context, foodID uint, qty int) (*models.FoodItem, error) {
	if qty < 0 {
		return nil, newError(ErrInvalidArgument, "Quantity cannot be negative")
	}

	res := l.db.WithContext(ctx).Model(&models.FoodItem{}).
		Where("id = ?", foodID).
		UpdateColumn("quantity", qty)
	if res.Error != nil {
		return nil, internalError("set quantity", res.Error)
	}

	// RowsAffected is 0 on MySQL when the value did not change, so existence
	// is decided by the read.
	return l.find(ctx, foodID)
}

// Available returns the current stock of foodID.
func (l *InventoryLedger) Available(ctx context.Context, foodID uint) (int, error) {
	food, err := l.find(ctx, foodID)
	if err != nil {
		return 0, err
	}
	return food.Quantity, nil
}

func (l *InventoryLedger) find(ctx context.Context, foodID uint) (*models.FoodItem, error) {
	var food models.FoodItem
	if err := l.db.WithContext(ctx).Where("id = ?", foodID).First(&food).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Food item not found")
		}
		return nil, internalError("load food", err)
	}
	return &food, nil
}
