package Controllers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/farm-to-table/controllers"
	"github.com/yeremiapane/farm-to-table/middlewares"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
	"gorm.io/gorm"
)

// setupUserRouter mengonfigurasi endpoint auth yang akan diuji
func setupUserRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	userCtrl := controllers.NewUserController(db)
	router.POST("/register", userCtrl.Register)
	router.POST("/login", userCtrl.Login)
	router.GET("/profile", middlewares.AuthMiddleware(), userCtrl.GetProfile)
	router.GET("/users", middlewares.AuthMiddleware(), middlewares.RequireAdmin(), userCtrl.GetAllUsers)
	return router
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)

	w, resp := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"name":     "Test User",
		"email":    "Test@Example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, resp.Success)

	var registered struct {
		Token string `json:"token"`
		User  struct {
			ID    uint   `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &registered))
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "test@example.com", registered.User.Email)
	assert.Equal(t, models.RoleUser, registered.User.Role)
	assert.NotContains(t, string(resp.Data), "password")

	claims, err := utils.ParseToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)

	w, resp = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email":    "test@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", resp.Message)

	w, resp = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email":    "test@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", resp.Message)

	w, resp = doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User does not exist", resp.Message)
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)
	createUser(t, db, "taken@example.com", models.RoleUser)

	cases := []struct {
		name    string
		payload map[string]string
		code    int
		message string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "password123"}, http.StatusBadRequest, "Missing details"},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "password123"}, http.StatusBadRequest, "Enter a valid email"},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "123"}, http.StatusBadRequest, "Enter a strong password (min. 6 characters)"},
		{"bad role", map[string]string{"name": "A", "email": "a@example.com", "password": "password123", "role": "chef"}, http.StatusBadRequest, "Invalid role. Must be 'user' or 'admin'"},
		{"self-made admin", map[string]string{"name": "A", "email": "a@example.com", "password": "password123", "role": "admin"}, http.StatusForbidden, "Only an admin can create admin accounts"},
		{"duplicate email", map[string]string{"name": "A", "email": "taken@example.com", "password": "password123"}, http.StatusConflict, "Email already registered"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := doJSON(t, router, http.MethodPost, "/register", "", tc.payload)
			assert.Equal(t, tc.code, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.message, resp.Message)
		})
	}
}

func TestAdminCanRegisterAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)
	_, adminToken := createUser(t, db, "admin@example.com", models.RoleAdmin)

	w, _ := doJSON(t, router, http.MethodPost, "/register", adminToken, map[string]string{
		"name": "Second Admin", "email": "admin2@example.com", "password": "password123", "role": "admin",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var user models.User
	require.NoError(t, db.Where("email = ?", "admin2@example.com").First(&user).Error)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestProfileAndUserList(t *testing.T) {
	db := setupTestDB(t)
	router := setupUserRouter(db)
	_, userToken := createUser(t, db, "user@example.com", models.RoleUser)
	_, adminToken := createUser(t, db, "admin@example.com", models.RoleAdmin)

	w, resp := doJSON(t, router, http.MethodGet, "/profile", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "user@example.com")

	w, _ = doJSON(t, router, http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = doJSON(t, router, http.MethodGet, "/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = doJSON(t, router, http.MethodGet, "/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &users))
	assert.Len(t, users, 2)
}
