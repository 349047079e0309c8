package handler

import (
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-stock-service/internal/movement"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// MovementHandler serves the history of one stock item. Callers resolve the
// item first so store scoping is enforced by the ledger.
type MovementHandler struct {
	uc     movement.UseCase
	logger logger.ZapLogger
}

func NewMovementHandler(uc movement.UseCase, log logger.ZapLogger) *MovementHandler {
	return &MovementHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *MovementHandler) List(c *gin.Context, stockItemID string) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	movements, total, err := h.uc.ListMovements(c.Request.Context(), stockItemID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":       movements,
		"pagination": response.NewPagination(page, limit, total),
	})
}
