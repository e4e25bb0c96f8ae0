package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
	"gorm.io/gorm"
)

// StockMonitor polls the catalog and tells admins when a food runs low.
// An alert fires once per crossing; the food must climb back above the
// threshold before it can alert again.
type StockMonitor struct {
	DB        *gorm.DB
	Publisher events.Publisher
	StopChan  chan struct{}
	Interval  time.Duration
	Threshold int

	mu       sync.Mutex
	alerted  map[uint]bool
	stopOnce sync.Once
}

func NewStockMonitor(db *gorm.DB, publisher events.Publisher, threshold int, interval time.Duration) *StockMonitor {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StockMonitor{
		DB:        db,
		Publisher: publisher,
		StopChan:  make(chan struct{}),
		Interval:  interval,
		Threshold: threshold,
		alerted:   make(map[uint]bool),
	}
}

func (sm *StockMonitor) Start() {
	go func() {
		ticker := time.NewTicker(sm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sm.checkStock(context.Background())
			case <-sm.StopChan:
				return
			}
		}
	}()
}

func (sm *StockMonitor) Stop() {
	sm.stopOnce.Do(func() { close(sm.StopChan) })
}

// checkStock returns the foods it alerted on during this pass.
func (sm *StockMonitor) checkStock(ctx context.Context) []StockLevel {
	var foods []models.FoodItem
	if err := sm.DB.WithContext(ctx).Select("id", "name", "quantity").Find(&foods).Error; err != nil {
		utils.ErrorLogger.Printf("Stock monitor: error fetching foods: %v", err)
		return nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	var fired []StockLevel
	seen := make(map[uint]bool, len(foods))
	for _, food := range foods {
		seen[food.ID] = true
		if food.Quantity > sm.Threshold {
			delete(sm.alerted, food.ID)
			continue
		}
		if sm.alerted[food.ID] {
			continue
		}
		sm.alerted[food.ID] = true

		level := StockLevel{FoodID: food.ID, Quantity: food.Quantity}
		fired = append(fired, level)
		utils.InfoLogger.Warnf("Low stock: %s has %d left", food.Name, food.Quantity)
		if err := sm.Publisher.Publish(ctx, events.NewAdmin(events.EventLowStock, level)); err != nil {
			utils.ErrorLogger.Printf("Publish %s failed: %v", events.EventLowStock, err)
		}
	}

	// Forget foods that were removed from the catalog.
	for id := range sm.alerted {
		if !seen[id] {
			delete(sm.alerted, id)
		}
	}
	return fired
}
