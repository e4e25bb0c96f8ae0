package models

import "time"

// FoodItem is a catalog entry. Quantity is the available stock and is only
// changed through the inventory ledger.
type FoodItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Price       float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string    `gorm:"type:varchar(100);not null;index" json:"category"`
	Image       string    `gorm:"type:varchar(255);not null" json:"image"`
	Quantity    int       `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (FoodItem) TableName() string {
	return "foods"
}
