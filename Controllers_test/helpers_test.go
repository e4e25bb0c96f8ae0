package Controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.InitLogger("error")
}

// setupTestDB menggunakan SQLite in-memory, satu database per test
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.FoodItem{}, &models.Order{}, &models.OrderItem{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string) (models.User, string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Name: "Test " + role, Email: email, Password: string(hashed), Role: role}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func createFood(t *testing.T, db *gorm.DB, name string, price float64, qty int) models.FoodItem {
	t.Helper()
	food := models.FoodItem{
		Name:        name,
		Description: "fresh " + name,
		Price:       price,
		Category:    "Vegetables",
		Image:       "/images/" + name + ".png",
		Quantity:    qty,
	}
	require.NoError(t, db.Create(&food).Error)
	return food
}

func quantityOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var food models.FoodItem
	require.NoError(t, db.Where("id = ?", id).First(&food).Error)
	return food.Quantity
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// memoryCache is an in-process catalog cache for asserting invalidation.
// It keeps the generation contract of cache.CatalogCache.
type memoryCache struct {
	mu          sync.Mutex
	gen         int64
	foods       []models.FoodItem
	cached      bool
	invalidated int
	// onMiss runs after a miss is reported, before the caller queries the db.
	onMiss func()
}

func (m *memoryCache) GetFoods(context.Context) ([]models.FoodItem, int64, bool) {
	m.mu.Lock()
	foods, gen, cached, onMiss := m.foods, m.gen, m.cached, m.onMiss
	m.mu.Unlock()
	if !cached && onMiss != nil {
		onMiss()
	}
	return foods, gen, cached
}

func (m *memoryCache) SetFoods(_ context.Context, gen int64, foods []models.FoodItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.foods, m.cached = foods, true
}

func (m *memoryCache) Invalidate(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.foods, m.cached = nil, false
	m.invalidated++
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
