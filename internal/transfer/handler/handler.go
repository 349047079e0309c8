package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/response"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/gin-gonic/gin"
)

type TransferHandler struct {
	uc     transfer.UseCase
	logger logger.ZapLogger
}

func NewTransferHandler(uc transfer.UseCase, log logger.ZapLogger) *TransferHandler {
	return &TransferHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/transfers")
	g.POST("", h.CreateTransfer)
	g.GET("", h.ListTransfers)
	g.GET("/:id", h.GetTransfer)
	g.POST("/:id/ship", h.action(h.uc.Ship))
	g.POST("/:id/receive", h.action(h.uc.Receive))
	g.POST("/:id/cancel", h.action(h.uc.Cancel))
}

type transferItemRequest struct {
	ProductID           string           `json:"product_id" binding:"required"`
	VariationID         *string          `json:"variation_id"`
	VariationAttributes model.Attributes `json:"variation_attributes"`
	Quantity            int64            `json:"quantity" binding:"required"`
}

type createTransferRequest struct {
	FromLocationID string                `json:"from_location_id" binding:"required"`
	ToLocationID   string                `json:"to_location_id" binding:"required"`
	Notes          string                `json:"notes"`
	Items          []transferItemRequest `json:"items" binding:"required,dive"`
}

func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req createTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	input := &dto.CreateTransferInput{
		StoreID:        auth.GetStoreID(c),
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Notes:          req.Notes,
		Actor:          auth.GetActor(c),
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, dto.TransferItemInput{
			ProductID:           it.ProductID,
			VariationID:         it.VariationID,
			VariationAttributes: it.VariationAttributes,
			Quantity:            it.Quantity,
		})
	}

	t, err := h.uc.CreateTransfer(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TransferHandler) GetTransfer(c *gin.Context) {
	t, err := h.uc.GetTransfer(c.Request.Context(), auth.GetStoreID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransferHandler) ListTransfers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filters := &dto.TransferFilters{
		StoreID: auth.GetStoreID(c),
		Status:  model.TransferStatus(c.Query("status")),
		Page:    page,
		Limit:   limit,
	}
	transfers, total, err := h.uc.ListTransfers(c.Request.Context(), filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       transfers,
		"pagination": response.NewPagination(filters.Page, filters.Limit, total),
	})
}

type transitionFunc func(ctx context.Context, storeID, id string, actor model.Actor) (*model.StockTransfer, error)

func (h *TransferHandler) action(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := fn(c.Request.Context(), auth.GetStoreID(c), c.Param("id"), auth.GetActor(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}
