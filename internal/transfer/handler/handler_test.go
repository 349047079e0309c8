package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/internal/testutil"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderStoreID, "store-1")
	req.Header.Set(auth.HeaderUserID, "u-3")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTransferRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testutil.NewStack(t)
	r := gin.New()
	handler.NewTransferHandler(s.Transfers, logger.NewNop()).RegisterRoutes(r.Group("/api/v1", auth.RequireStore()))

	from := testutil.SeedLocation(t, s.DB, "store-1", "warehouse")
	to := testutil.SeedLocation(t, s.DB, "store-1", "store")
	_, err := s.Stock.Receive(context.Background(), &stockdto.ReceiveInput{StoreID: "store-1", ProductID: "P1", LocationID: from, Quantity: 8})
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/api/v1/transfers",
		`{"from_location_id":"`+from+`","to_location_id":"`+to+`","items":[{"product_id":"P1","quantity":3}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.StockTransfer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, model.TransferPending, created.Status)
	assert.Equal(t, "u-3", created.CreatedBy)

	w = do(r, http.MethodPost, "/api/v1/transfers/"+created.ID+"/receive", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"invalid_state"`)

	w = do(r, http.MethodPost, "/api/v1/transfers/"+created.ID+"/ship", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"in_transit"`)

	w = do(r, http.MethodPost, "/api/v1/transfers/"+created.ID+"/receive", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"completed"`)

	w = do(r, http.MethodGet, "/api/v1/transfers?status=completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(r, http.MethodGet, "/api/v1/transfers/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"product_id":"P1"`)
}

func TestTransferRoutes_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testutil.NewStack(t)
	r := gin.New()
	handler.NewTransferHandler(s.Transfers, logger.NewNop()).RegisterRoutes(r.Group("/api/v1", auth.RequireStore()))
	loc := testutil.SeedLocation(t, s.DB, "store-1", "warehouse")

	w := do(r, http.MethodPost, "/api/v1/transfers", `{"from_location_id":"`+loc+`","to_location_id":"`+loc+`","items":[{"product_id":"P1","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/transfers", `{"from_location_id":"`+loc+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/transfers/missing/ship", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/transfers?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
