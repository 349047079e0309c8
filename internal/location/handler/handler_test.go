package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/location/handler"
	"github.com/fekuna/omnipos-stock-service/internal/location/repository"
	"github.com/fekuna/omnipos-stock-service/internal/location/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	uc := usecase.NewLocationUseCase(repository.NewPGRepository(db), database.NewTxManager(db), logger.NewNop())

	r := gin.New()
	api := r.Group("/api/v1", auth.RequireStore())
	handler.NewLocationHandler(uc, logger.NewNop()).RegisterRoutes(api)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderStoreID, "store-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLocationRoutes(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/v1/locations", `{"name":"Main","type":"warehouse"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.InventoryLocation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "store-1", created.StoreID)

	w = do(r, http.MethodPatch, "/api/v1/locations/"+created.ID, `{"name":"Main warehouse"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Main warehouse"`)

	w = do(r, http.MethodGet, "/api/v1/locations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = do(r, http.MethodPost, "/api/v1/locations/"+created.ID+"/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"drift":0`)
}

func TestLocationRoutes_Errors(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/v1/locations", `{"name":"Main","type":"attic"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/locations/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"not_found"`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
