package services

import (
	"context"
	"errors"

	"github.com/yeremiapane/farm-to-table/models"
	"gorm.io/gorm"
)

// OrderStats is the admin dashboard summary. Revenue counts delivered
// orders only.
type OrderStats struct {
	TotalOrders     int64                        `json:"totalOrders"`
	PendingOrders   int64                        `json:"pendingOrders"`
	DeliveredOrders int64                        `json:"deliveredOrders"`
	CancelledOrders int64                        `json:"cancelledOrders"`
	TotalRevenue    float64                      `json:"totalRevenue"`
	ByStatus        map[models.OrderStatus]int64 `json:"byStatus"`
}

// OrderQueryService is the read side of orders.
type OrderQueryService struct {
	db *gorm.DB
}

func NewOrderQueryService(db *gorm.DB) *OrderQueryService {
	return &OrderQueryService{db: db}
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

func withOwner(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "role")
}

// ListForUser returns the user's orders, newest first.
func (q *OrderQueryService) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := q.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Scopes(newestFirst).
		Find(&orders).Error
	if err != nil {
		return nil, internalError("list user orders", err)
	}
	return orders, nil
}

// ListAll returns every order with its owner, newest first.
func (q *OrderQueryService) ListAll(ctx context.Context) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := q.db.WithContext(ctx).
		Preload("Items").
		Preload("User", withOwner).
		Scopes(newestFirst).
		Find(&orders).Error
	if err != nil {
		return nil, internalError("list orders", err)
	}
	return orders, nil
}

// GetByID returns the order when p owns it or is an admin. Any other caller
// gets ErrNotFound, so the existence of other users' orders does not leak.
func (q *OrderQueryService) GetByID(ctx context.Context, orderID uint, p Principal) (*models.Order, error) {
	var order models.Order
	err := q.db.WithContext(ctx).
		Preload("Items").
		Preload("User", withOwner).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Order not found")
		}
		return nil, internalError("load order", err)
	}
	if !p.canSee(order.UserID) {
		return nil, newError(ErrNotFound, "Order not found")
	}
	return &order, nil
}

// Stats counts orders per status in one grouped query.
func (q *OrderQueryService) Stats(ctx context.Context) (*OrderStats, error) {
	var rows []struct {
		Status  models.OrderStatus
		Count   int64
		Revenue float64
	}
	err := q.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS revenue").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, internalError("order stats", err)
	}

	stats := &OrderStats{ByStatus: make(map[models.OrderStatus]int64, len(models.AllStatuses))}
	for _, status := range models.AllStatuses {
		stats.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
		if row.Status == models.StatusDelivered {
			stats.TotalRevenue = row.Revenue
		}
	}
	stats.PendingOrders = stats.ByStatus[models.StatusPending]
	stats.DeliveredOrders = stats.ByStatus[models.StatusDelivered]
	stats.CancelledOrders = stats.ByStatus[models.StatusCancelled]
	return stats, nil
}
