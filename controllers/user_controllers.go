package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yeremiapane/farm-to-table/middlewares"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = validator.New()

type UserController struct {
	DB *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{DB: db}
}

type userView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func viewOf(u models.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Register user baru. Akun admin hanya bisa dibuat oleh admin lain.
func (uc *UserController) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Missing details"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Missing details"))
		return
	}
	if validate.Var(req.Email, "email") != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Enter a valid email"))
		return
	}
	if validate.Var(req.Password, "min=6") != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Enter a strong password (min. 6 characters)"))
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleUser
	}
	if validate.Var(role, "oneof=user admin") != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid role. Must be 'user' or 'admin'"))
		return
	}
	if role == models.RoleAdmin && !callerIsAdmin(c) {
		utils.RespondError(c, http.StatusForbidden, errors.New("Only an admin can create admin accounts"))
		return
	}

	var count int64
	if err := uc.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		utils.ErrorLogger.Printf("Register lookup failed: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}
	if count > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("Email already registered"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     role,
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		utils.ErrorLogger.Printf("Register failed: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"token": token,
		"user":  viewOf(user),
	})
}

// callerIsAdmin checks an optional bearer token on an otherwise public route.
func callerIsAdmin(c *gin.Context) bool {
	header := c.GetHeader("Authorization")
	if header == "" {
		return false
	}
	claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
	return err == nil && claims.Role == models.RoleAdmin
}

// Login user -> return JWT
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Missing details"))
		return
	}

	var user models.User
	if err := uc.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("User does not exist"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid credentials"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	utils.InfoLogger.Printf("Login successful for user: %s, role: %s", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  viewOf(user),
	})
}

// GetProfile -> memeriksa user dari JWT
func (uc *UserController) GetProfile(c *gin.Context) {
	userID, _, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Not Authorized. Login Again"))
		return
	}

	var user models.User
	if err := uc.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("User not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", viewOf(user))
}

// GetAllUsers -> khusus admin, dijaga RequireAdmin di router
func (uc *UserController) GetAllUsers(c *gin.Context) {
	var users []models.User
	if err := uc.DB.Order("id ASC").Find(&users).Error; err != nil {
		utils.ErrorLogger.Printf("List users failed: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	utils.RespondJSON(c, http.StatusOK, "All users", views)
}
