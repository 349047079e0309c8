package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	movementhandler "github.com/fekuna/omnipos-stock-service/internal/movement/handler"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/response"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type StockHandler struct {
	uc        stock.UseCase
	movements *movementhandler.MovementHandler
	logger    logger.ZapLogger
}

func NewStockHandler(uc stock.UseCase, movements *movementhandler.MovementHandler, log logger.ZapLogger) *StockHandler {
	return &StockHandler{
		uc:        uc,
		movements: movements,
		logger:    log,
	}
}

func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stock-items")
	g.POST("", h.Receive)
	g.GET("", h.Search)
	g.GET("/:id", h.GetStockItem)
	g.PUT("/:id/quantity", h.SetQuantity)
	g.POST("/:id/reserve", h.Reserve)
	g.POST("/:id/release", h.Release)
	g.GET("/:id/movements", h.ListMovements)
	g.GET("/:id/audit", h.Audit)
}

type receiveRequest struct {
	ProductID           string              `json:"product_id" binding:"required"`
	VariationID         *string             `json:"variation_id"`
	VariationAttributes model.Attributes    `json:"variation_attributes"`
	LocationID          string              `json:"location_id" binding:"required"`
	Quantity            int64               `json:"quantity"`
	ReservedQuantity    int64               `json:"reserved_quantity"`
	SellingPrice        decimal.NullDecimal `json:"selling_price"`
	LowStockThreshold   *int64              `json:"low_stock_threshold"`
	Reason              string              `json:"reason"`
	ReferenceID         *string             `json:"reference_id"`
}

type setQuantityRequest struct {
	Quantity *int64 `json:"quantity" binding:"required"`
	Reason   string `json:"reason"`
}

type reservationRequest struct {
	Quantity    int64   `json:"quantity" binding:"required"`
	Reason      string  `json:"reason"`
	ReferenceID *string `json:"reference_id"`
}

func (h *StockHandler) Receive(c *gin.Context) {
	var req receiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	item, err := h.uc.Receive(c.Request.Context(), &dto.ReceiveInput{
		StoreID:             auth.GetStoreID(c),
		ProductID:           req.ProductID,
		VariationID:         req.VariationID,
		VariationAttributes: req.VariationAttributes,
		LocationID:          req.LocationID,
		Quantity:            req.Quantity,
		ReservedQuantity:    req.ReservedQuantity,
		SellingPrice:        req.SellingPrice,
		LowStockThreshold:   req.LowStockThreshold,
		Reason:              req.Reason,
		ReferenceID:         req.ReferenceID,
		Actor:               auth.GetActor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *StockHandler) GetStockItem(c *gin.Context) {
	item, err := h.uc.GetStockItem(c.Request.Context(), auth.GetStoreID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *StockHandler) SetQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	item, err := h.uc.SetQuantity(c.Request.Context(), &dto.SetQuantityInput{
		StoreID:     auth.GetStoreID(c),
		StockItemID: c.Param("id"),
		NewQuantity: *req.Quantity,
		Reason:      req.Reason,
		Actor:       auth.GetActor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *StockHandler) Reserve(c *gin.Context) {
	h.reservation(c, h.uc.Reserve)
}

func (h *StockHandler) Release(c *gin.Context) {
	h.reservation(c, h.uc.Release)
}

func (h *StockHandler) reservation(c *gin.Context, op func(ctx context.Context, in *dto.ReservationInput) (*model.StockItem, error)) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	item, err := op(c.Request.Context(), &dto.ReservationInput{
		StoreID:     auth.GetStoreID(c),
		StockItemID: c.Param("id"),
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
		Actor:       auth.GetActor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *StockHandler) ListMovements(c *gin.Context) {
	item, err := h.uc.GetStockItem(c.Request.Context(), auth.GetStoreID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.movements.List(c, item.ID)
}

func (h *StockHandler) Audit(c *gin.Context) {
	report, err := h.uc.AuditStockItem(c.Request.Context(), auth.GetStoreID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *StockHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filters := &dto.SearchFilters{
		StoreID:     auth.GetStoreID(c),
		LocationIDs: listParam(c, "location_id"),
		ProductID:   c.Query("product_id"),
		SortBy:      c.Query("sort_by"),
		SortOrder:   strings.ToLower(c.Query("sort_order")),
		Page:        page,
		Limit:       limit,
	}
	for _, s := range listParam(c, "status") {
		filters.Statuses = append(filters.Statuses, model.StockStatus(s))
	}
	if raw, ok := c.GetQuery("low_stock"); ok {
		low, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, err)
			return
		}
		filters.LowStock = &low
	}

	res, err := h.uc.Search(c.Request.Context(), filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       res.Items,
		"pagination": response.NewPagination(res.Page, res.Limit, res.Total),
		"summary":    res.Summary,
	})
}

// listParam accepts both repeated and comma separated query values.
func listParam(c *gin.Context, name string) []string {
	var out []string
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
