package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-stock-service/internal/alert"
	"github.com/fekuna/omnipos-stock-service/internal/alert/dto"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	uc     alert.UseCase
	logger logger.ZapLogger
}

func NewAlertHandler(uc alert.UseCase, log logger.ZapLogger) *AlertHandler {
	return &AlertHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *AlertHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/alerts", h.ListAlerts)
}

func (h *AlertHandler) ListAlerts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filters := &dto.AlertFilters{
		StoreID: auth.GetStoreID(c),
		Status:  model.AlertStatus(c.Query("status")),
		Page:    page,
		Limit:   limit,
	}
	alerts, total, err := h.uc.ListAlerts(c.Request.Context(), filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       alerts,
		"pagination": response.NewPagination(filters.Page, filters.Limit, total),
	})
}
