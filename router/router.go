package router

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/farm-to-table/cache"
	"github.com/yeremiapane/farm-to-table/controllers"
	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/metrics"
	"github.com/yeremiapane/farm-to-table/middlewares"
	"github.com/yeremiapane/farm-to-table/services"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer needs. Zero values fall back to
// in-process defaults (no cache, hub-only events, default pricing).
type Dependencies struct {
	DB           *gorm.DB
	Hub          *events.Hub
	Publisher    events.Publisher
	Cache        cache.CatalogCache
	Pricing      *services.Pricing
	UploadDir    string
	CORSOrigins  []string
	RateLimitRPS float64
}

func (d *Dependencies) withDefaults() {
	if d.Hub == nil {
		d.Hub = events.NewHub()
	}
	if d.Publisher == nil {
		d.Publisher = d.Hub
	}
	if d.Cache == nil {
		d.Cache = cache.NoopCatalogCache{}
	}
	if d.Pricing == nil {
		p := services.DefaultPricing()
		d.Pricing = &p
	}
	if d.UploadDir == "" {
		d.UploadDir = "uploads"
	}
}

func SetupRouter(deps Dependencies) *gin.Engine {
	deps.withDefaults()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(metrics.Middleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.CORSOrigins))
	if deps.RateLimitRPS > 0 {
		r.Use(middlewares.NewRateLimiter(deps.RateLimitRPS, int(deps.RateLimitRPS)*2).RateLimit())
	}

	// Hanya izinkan akses ke file gambar
	images := r.Group("/images", func(c *gin.Context) {
		ext := strings.ToLower(filepath.Ext(c.Request.URL.Path))
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".gif" && ext != ".webp" {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	})
	images.Static("/", deps.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", metrics.Handler())

	orderService := services.NewOrderService(deps.DB, *deps.Pricing, deps.Publisher)
	queryService := services.NewOrderQueryService(deps.DB)
	stateMachine := services.NewOrderStateMachine(deps.DB, deps.Publisher)

	userCtrl := controllers.NewUserController(deps.DB)
	foodCtrl := controllers.NewFoodController(deps.DB, deps.Cache, deps.Publisher, deps.UploadDir)
	orderCtrl := controllers.NewOrderController(orderService, queryService, stateMachine, deps.Cache)
	streamCtrl := controllers.NewOrderStreamController(deps.Hub, deps.CORSOrigins)

	auth := middlewares.AuthMiddleware()
	admin := middlewares.RequireAdmin()

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", middlewares.NewStrictRateLimiter(), userCtrl.Register)
		authGroup.POST("/login", middlewares.NewStrictRateLimiter(), userCtrl.Login)
		authGroup.GET("/profile", auth, userCtrl.GetProfile)
		authGroup.GET("/users", auth, admin, userCtrl.GetAllUsers)
	}

	foodGroup := api.Group("/food")
	{
		foodGroup.GET("/list", foodCtrl.ListFoods)
		foodGroup.GET("/:id", foodCtrl.GetFood)
		foodGroup.POST("/add", auth, admin, foodCtrl.AddFood)
		foodGroup.PUT("/:id", auth, admin, foodCtrl.UpdateFood)
		foodGroup.PATCH("/:id/quantity", auth, admin, foodCtrl.SetQuantity)
		foodGroup.POST("/:id/restock", auth, admin, foodCtrl.Restock)
		foodGroup.POST("/remove-food", auth, admin, foodCtrl.RemoveFood)
	}

	orderGroup := api.Group("/order", auth)
	{
		orderGroup.POST("/place", orderCtrl.PlaceOrder)
		orderGroup.GET("/userorders", orderCtrl.UserOrders)
		orderGroup.PUT("/cancel", orderCtrl.CancelOrder)

		adminOrders := orderGroup.Group("/admin", admin)
		adminOrders.GET("/list", orderCtrl.ListOrders)
		adminOrders.PUT("/status", orderCtrl.UpdateStatus)
		adminOrders.GET("/stats", orderCtrl.Stats)

		orderGroup.GET("/:orderId", orderCtrl.GetOrder)
	}

	r.GET("/ws/orders", middlewares.WebSocketAuthMiddleware(), streamCtrl.Stream)

	return r
}
