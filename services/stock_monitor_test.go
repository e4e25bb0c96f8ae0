package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/models"
)

func TestStockMonitorAlertsOncePerCrossing(t *testing.T) {
	db := setupTestDB(t)
	low := seedFood(t, db, "Basil", 4, 2)
	seedFood(t, db, "Potato", 2, 50)
	rec := &recorder{}
	monitor := NewStockMonitor(db, rec, 5, time.Hour)
	ctx := context.Background()

	fired := monitor.checkStock(ctx)
	assert.Equal(t, []StockLevel{{FoodID: low.ID, Quantity: 2}}, fired)
	require.Len(t, rec.events, 1)
	assert.Equal(t, events.EventLowStock, rec.events[0].Type)
	assert.True(t, rec.events[0].AdminOnly)

	// still low, no repeat
	assert.Empty(t, monitor.checkStock(ctx))

	// restocked then drained again alerts again
	require.NoError(t, db.Model(&models.FoodItem{}).Where("id = ?", low.ID).Update("quantity", 20).Error)
	assert.Empty(t, monitor.checkStock(ctx))
	require.NoError(t, db.Model(&models.FoodItem{}).Where("id = ?", low.ID).Update("quantity", 0).Error)
	assert.Len(t, monitor.checkStock(ctx), 1)
	assert.Len(t, rec.events, 2)
}

func TestStockMonitorStartStop(t *testing.T) {
	db := setupTestDB(t)
	seedFood(t, db, "Basil", 4, 1)
	rec := &recorder{}
	monitor := NewStockMonitor(db, rec, 5, 10*time.Millisecond)

	monitor.Start()
	assert.Eventually(t, func() bool { return len(rec.types()) == 1 }, time.Second, 10*time.Millisecond)
	monitor.Stop()
	monitor.Stop()
}
