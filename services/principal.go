package services

import "github.com/yeremiapane/farm-to-table/models"

// Principal is the authenticated caller as vouched for by the auth
// middleware. Services trust it without further checks.
type Principal struct {
	UserID uint
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// canSee reports whether p may read or act on an order owned by ownerID.
func (p Principal) canSee(ownerID uint) bool {
	return p.IsAdmin() || p.UserID == ownerID
}

// StockLevel is the payload of stock change events.
type StockLevel struct {
	FoodID   uint `json:"food_id"`
	Quantity int  `json:"quantity"`
}
