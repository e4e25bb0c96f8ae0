package models

import (
	"fmt"
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentOnline         PaymentMethod = "online"
)

// ParsePaymentMethod accepts "cod" or "online", case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentCashOnDelivery, PaymentOnline:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// ShippingAddress is stored inline on the order.
type ShippingAddress struct {
	FirstName string `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName  string `gorm:"type:varchar(100);not null" json:"lastName"`
	Email     string `gorm:"type:varchar(255)" json:"email"`
	Phone     string `gorm:"type:varchar(50);not null" json:"phone"`
	Street    string `gorm:"type:varchar(255);not null" json:"address"`
	City      string `gorm:"type:varchar(100);not null" json:"city"`
	State     string `gorm:"type:varchar(100);not null" json:"state"`
	ZipCode   string `gorm:"type:varchar(20);not null" json:"zipCode"`
}

// Complete reports whether every field the courier needs is filled in.
// Email is optional.
func (a ShippingAddress) Complete() bool {
	for _, f := range []string{a.FirstName, a.LastName, a.Phone, a.Street, a.City, a.State, a.ZipCode} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"user,omitempty"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
	Amount         float64         `gorm:"type:decimal(10,2);not null" json:"amount"`
	Address        ShippingAddress `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(10);not null" json:"payment_method"`
	Payment        bool            `gorm:"not null;default:false" json:"payment"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	IdempotencyKey *string         `gorm:"type:varchar(100);uniqueIndex:idx_orders_user_idempotency" json:"-"`
	CreatedAt      time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}
