package database

import (
	"errors"
	"strings"

	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migrate membuat atau memperbarui semua tabel aplikasi.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.FoodItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedAdmin creates the first admin account when email is set and no user
// with that email exists yet. An existing account is left untouched.
func SeedAdmin(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Name:     "Admin",
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	utils.InfoLogger.Printf("Seeded admin account %s", email)
	return nil
}
