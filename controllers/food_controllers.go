package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/farm-to-table/cache"
	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/metrics"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/services"
	"github.com/yeremiapane/farm-to-table/utils"
	"gorm.io/gorm"
)

const maxImageSize = 5 << 20

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

type FoodController struct {
	DB        *gorm.DB
	Ledger    *services.InventoryLedger
	Cache     cache.CatalogCache
	Publisher events.Publisher
	UploadDir string
}

func NewFoodController(db *gorm.DB, catalog cache.CatalogCache, publisher events.Publisher, uploadDir string) *FoodController {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &FoodController{
		DB:        db,
		Ledger:    services.NewInventoryLedger(db),
		Cache:     catalog,
		Publisher: publisher,
		UploadDir: uploadDir,
	}
}

// ListFoods mengembalikan seluruh katalog. Tanpa filter, hasil diambil dari
// cache bila tersedia.
func (fc *FoodController) ListFoods(c *gin.Context) {
	ctx := c.Request.Context()
	category := strings.TrimSpace(c.Query("category"))

	var gen int64 = -1
	if category == "" {
		foods, g, ok := fc.Cache.GetFoods(ctx)
		if ok {
			utils.RespondJSON(c, http.StatusOK, "List of foods", foods)
			return
		}
		gen = g
	}

	foods := make([]models.FoodItem, 0)
	query := fc.DB.WithContext(ctx).Order("id ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&foods).Error; err != nil {
		utils.ErrorLogger.Printf("List foods failed: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	if category == "" {
		// Ditulis dengan generasi sebelum query; bila sempat di-invalidate, entri ini tidak terbaca
		fc.Cache.SetFoods(ctx, gen, foods)
	}
	utils.RespondJSON(c, http.StatusOK, "List of foods", foods)
}

func (fc *FoodController) GetFood(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid food id"))
		return
	}

	var food models.FoodItem
	if err := fc.DB.WithContext(c.Request.Context()).Where("id = ?", id).First(&food).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Food item not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Food detail", food)
}

// AddFood membuat item katalog baru dari form multipart dengan satu gambar.
func (fc *FoodController) AddFood(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	description := strings.TrimSpace(c.PostForm("description"))
	category := strings.TrimSpace(c.PostForm("category"))
	if name == "" || description == "" || category == "" || c.PostForm("price") == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Missing details"))
		return
	}

	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil || price < 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid price"))
		return
	}

	quantity := 0
	if raw := c.PostForm("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid quantity"))
			return
		}
		if quantity < 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Quantity cannot be negative"))
			return
		}
	}

	file, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Image file is required"))
		return
	}
	imagePath, err := fc.saveImage(c, file)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	food := models.FoodItem{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Image:       imagePath,
		Quantity:    quantity,
	}
	if err := fc.DB.WithContext(c.Request.Context()).Create(&food).Error; err != nil {
		fc.removeImage(imagePath)
		utils.ErrorLogger.Printf("Create food failed: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	fc.Cache.Invalidate(c.Request.Context())
	utils.InfoLogger.Printf("Food %d (%s) added with %d in stock", food.ID, food.Name, food.Quantity)
	utils.RespondJSON(c, http.StatusCreated, "Food added", food)
}

// UpdateFood mengubah field katalog. Stok hanya diubah lewat ledger.
func (fc *FoodController) UpdateFood(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid food id"))
		return
	}
	ctx := c.Request.Context()

	var food models.FoodItem
	if err := fc.DB.WithContext(ctx).Where("id = ?", id).First(&food).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Food item not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	updates := map[string]interface{}{}
	for _, field := range []string{"name", "description", "category"} {
		if v := strings.TrimSpace(c.PostForm(field)); v != "" {
			updates[field] = v
		}
	}
	if raw := c.PostForm("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid price"))
			return
		}
		updates["price"] = price
	}

	var quantity *int
	if raw := c.PostForm("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid quantity"))
			return
		}
		quantity = &q
	}

	oldImage := ""
	if file, err := c.FormFile("image"); err == nil {
		imagePath, err := fc.saveImage(c, file)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		updates["image"] = imagePath
		oldImage = food.Image
	}

	err := fc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.FoodItem{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if quantity != nil {
			if _, err := fc.Ledger.WithTx(tx).SetQuantity(ctx, id, *quantity); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&food).Error
	})
	if err != nil {
		if img, ok := updates["image"].(string); ok {
			fc.removeImage(img)
		}
		respondServiceError(c, err)
		return
	}
	if oldImage != "" {
		fc.removeImage(oldImage)
	}

	fc.Cache.Invalidate(ctx)
	if quantity != nil {
		fc.publishStock(c, food)
	}
	utils.RespondJSON(c, http.StatusOK, "Food updated", food)
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// SetQuantity menimpa stok sebuah item (koreksi stok oleh admin).
func (fc *FoodController) SetQuantity(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid food id"))
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Quantity is required"))
		return
	}

	food, err := fc.Ledger.SetQuantity(c.Request.Context(), id, *req.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	fc.Cache.Invalidate(c.Request.Context())
	fc.publishStock(c, *food)
	utils.InfoLogger.Printf("Stock of food %d set to %d", food.ID, food.Quantity)
	utils.RespondJSON(c, http.StatusOK, "Quantity updated", food)
}

// Restock menambah stok sebanyak quantity.
func (fc *FoodController) Restock(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid food id"))
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Quantity is required"))
		return
	}

	remaining, err := fc.Ledger.Release(c.Request.Context(), id, *req.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	metrics.StockUnitsReleased.Add(float64(*req.Quantity))
	fc.Cache.Invalidate(c.Request.Context())
	fc.publish(c, events.NewAdmin(events.EventStockChanged, services.StockLevel{FoodID: id, Quantity: remaining}))
	utils.InfoLogger.Printf("Food %d restocked by %d, now %d", id, *req.Quantity, remaining)
	utils.RespondJSON(c, http.StatusOK, "Food restocked", services.StockLevel{FoodID: id, Quantity: remaining})
}

// RemoveFood menghapus item beserta file gambarnya. Order lama tetap
// menyimpan snapshot nama dan harga.
func (fc *FoodController) RemoveFood(c *gin.Context) {
	var req struct {
		ID uint `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Food id is required"))
		return
	}
	ctx := c.Request.Context()

	var food models.FoodItem
	if err := fc.DB.WithContext(ctx).Where("id = ?", req.ID).First(&food).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Food item not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}

	if err := fc.DB.WithContext(ctx).Delete(&models.FoodItem{}, food.ID).Error; err != nil {
		utils.ErrorLogger.Printf("Delete food %d failed: %v", food.ID, err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("Internal server error"))
		return
	}
	fc.removeImage(food.Image)

	fc.Cache.Invalidate(ctx)
	utils.InfoLogger.Printf("Food %d (%s) removed", food.ID, food.Name)
	utils.RespondJSON(c, http.StatusOK, "Food Removed", nil)
}

func (fc *FoodController) saveImage(c *gin.Context, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExt[ext] {
		return "", errors.New("Unsupported image type")
	}
	if file.Size > maxImageSize {
		return "", errors.New("Image is too large (max 5MB)")
	}

	if err := os.MkdirAll(fc.UploadDir, 0755); err != nil {
		utils.ErrorLogger.Printf("Create upload dir failed: %v", err)
		return "", errors.New("Could not store image")
	}

	filename := fmt.Sprintf("%d%s", time.Now().UnixNano(), ext)
	if err := c.SaveUploadedFile(file, filepath.Join(fc.UploadDir, filename)); err != nil {
		utils.ErrorLogger.Printf("Save image failed: %v", err)
		return "", errors.New("Could not store image")
	}
	return "/images/" + filename, nil
}

func (fc *FoodController) removeImage(publicPath string) {
	name := filepath.Base(strings.TrimPrefix(publicPath, "/images/"))
	if name == "" || name == "." || name == "/" {
		return
	}
	if err := os.Remove(filepath.Join(fc.UploadDir, name)); err != nil && !os.IsNotExist(err) {
		utils.ErrorLogger.Printf("Remove image %s failed: %v", name, err)
	}
}

func (fc *FoodController) publishStock(c *gin.Context, food models.FoodItem) {
	fc.publish(c, events.NewAdmin(events.EventStockChanged, services.StockLevel{FoodID: food.ID, Quantity: food.Quantity}))
}

func (fc *FoodController) publish(c *gin.Context, evt events.Event) {
	if err := fc.Publisher.Publish(c.Request.Context(), evt); err != nil {
		utils.ErrorLogger.Printf("Publish %s failed: %v", evt.Type, err)
	}
}
