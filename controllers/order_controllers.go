package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/farm-to-table/cache"
	"github.com/yeremiapane/farm-to-table/models"
	"github.com/yeremiapane/farm-to-table/services"
	"github.com/yeremiapane/farm-to-table/utils"
)

type OrderController struct {
	Orders  *services.OrderService
	Queries *services.OrderQueryService
	States  *services.OrderStateMachine
	Cache   cache.CatalogCache
}

func NewOrderController(orders *services.OrderService, queries *services.OrderQueryService, states *services.OrderStateMachine, catalog cache.CatalogCache) *OrderController {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	return &OrderController{Orders: orders, Queries: queries, States: states, Cache: catalog}
}

type orderItemRequest struct {
	FoodID   uint    `json:"foodId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type placeOrderRequest struct {
	Items         []orderItemRequest      `json:"items"`
	Address       *models.ShippingAddress `json:"address"`
	Amount        float64                 `json:"amount"`
	PaymentMethod string                  `json:"paymentMethod"`
}

// PlaceOrder -> buat order baru dan kurangi stok
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid order payload"))
		return
	}

	in := services.PlaceOrderInput{
		UserID:         p.UserID,
		Items:          make([]services.LineItemInput, 0, len(req.Items)),
		Address:        req.Address,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, services.LineItemInput{
			FoodID:   item.FoodID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}

	order, err := oc.Orders.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	oc.Cache.Invalidate(c.Request.Context())
	utils.RespondJSON(c, http.StatusCreated, "Order placed successfully", order)
}

// UserOrders -> daftar order milik user yang login
func (oc *OrderController) UserOrders(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	orders, err := oc.Queries.ListForUser(c.Request.Context(), p.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User orders", orders)
}

// GetOrder -> detail order; user lain mendapat 404
func (oc *OrderController) GetOrder(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c.Param("orderId"))
	if !ok {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid order id"))
		return
	}

	order, err := oc.Queries.GetByID(c.Request.Context(), orderID, p)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// CancelOrder -> batalkan order pending dan kembalikan stok
func (oc *OrderController) CancelOrder(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		return
	}

	var req struct {
		OrderID uint `json:"orderId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Order id is required"))
		return
	}

	order, err := oc.States.Cancel(c.Request.Context(), req.OrderID, p)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	oc.Cache.Invalidate(c.Request.Context())
	utils.RespondJSON(c, http.StatusOK, "Order cancelled successfully", order)
}

// ListOrders -> semua order (admin)
func (oc *OrderController) ListOrders(c *gin.Context) {
	orders, err := oc.Queries.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// UpdateStatus -> ubah status order (admin)
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var req struct {
		OrderID uint   `json:"orderId" binding:"required"`
		Status  string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Order id and status are required"))
		return
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Invalid status"))
		return
	}

	order, err := oc.States.Transition(c.Request.Context(), req.OrderID, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if status == models.StatusCancelled {
		oc.Cache.Invalidate(c.Request.Context())
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// Stats -> ringkasan dashboard admin
func (oc *OrderController) Stats(c *gin.Context) {
	stats, err := oc.Queries.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order statistics", stats)
}
