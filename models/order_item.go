package models

import (
	"time"
)

// OrderItem is one line of an order. Name and Price are copied from the
// catalog when the order is placed and never follow later catalog edits, so
// there is no foreign key to foods.
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	FoodID    uint      `gorm:"not null;index" json:"food_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity  int       `gorm:"not null;check:quantity >= 1" json:"quantity"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
