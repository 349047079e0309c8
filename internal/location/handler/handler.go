package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/location"
	"github.com/fekuna/omnipos-stock-service/internal/location/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	uc     location.UseCase
	logger logger.ZapLogger
}

func NewLocationHandler(uc location.UseCase, log logger.ZapLogger) *LocationHandler {
	return &LocationHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *LocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/locations")
	g.POST("", h.CreateLocation)
	g.GET("", h.ListLocations)
	g.GET("/:id", h.GetLocation)
	g.PATCH("/:id", h.UpdateLocation)
	g.POST("/:id/reconcile", h.Reconcile)
}

type createLocationRequest struct {
	Name string             `json:"name" binding:"required"`
	Type model.LocationType `json:"type" binding:"required"`
}

type updateLocationRequest struct {
	Name     *string             `json:"name"`
	Type     *model.LocationType `json:"type"`
	IsActive *bool               `json:"is_active"`
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	loc, err := h.uc.CreateLocation(c.Request.Context(), &dto.CreateLocationInput{
		StoreID: auth.GetStoreID(c),
		Name:    req.Name,
		Type:    req.Type,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

func (h *LocationHandler) ListLocations(c *gin.Context) {
	locations, err := h.uc.ListLocations(c.Request.Context(), auth.GetStoreID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": locations})
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	loc, err := h.uc.GetLocation(c.Request.Context(), auth.GetStoreID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	loc, err := h.uc.UpdateLocation(c.Request.Context(), &dto.UpdateLocationInput{
		ID:       c.Param("id"),
		StoreID:  auth.GetStoreID(c),
		Name:     req.Name,
		Type:     req.Type,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (h *LocationHandler) Reconcile(c *gin.Context) {
	res, err := h.uc.Reconcile(c.Request.Context(), auth.GetStoreID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
