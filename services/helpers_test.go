package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every connection to ":memory:" is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.FoodItem{}, &models.Order{}, &models.OrderItem{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	user := models.User{Name: "Test " + role, Email: email, Password: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedFood(t *testing.T, db *gorm.DB, name string, price float64, qty int) models.FoodItem {
	t.Helper()
	food := models.FoodItem{
		Name:        name,
		Description: "fresh " + name,
		Price:       price,
		Category:    "Vegetables",
		Image:       name + ".png",
		Quantity:    qty,
	}
	require.NoError(t, db.Create(&food).Error)
	return food
}

func stockOf(t *testing.T, db *gorm.DB, foodID uint) int {
	t.Helper()
	var food models.FoodItem
	require.NoError(t, db.Where("id = ?", foodID).First(&food).Error)
	return food.Quantity
}

func testAddress() *models.ShippingAddress {
	return &models.ShippingAddress{
		FirstName: "Sari",
		LastName:  "Tani",
		Email:     "sari@example.com",
		Phone:     "08123",
		Street:    "Jl. Sawah 1",
		City:      "Bogor",
		State:     "Jawa Barat",
		ZipCode:   "16111",
	}
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}
