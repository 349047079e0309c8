package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type SearchFilters struct {
	StoreID     string
	LocationIDs []string
	Statuses    []model.StockStatus
	LowStock    *bool // nil means no low-stock predicate
	ProductID   string
	SortBy      string
	SortOrder   string
	Page        int
	Limit       int
}

type SearchSummary struct {
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalQuantity   int64           `json:"total_quantity"`
	LowStockCount   int64           `json:"low_stock_count"`
	OutOfStockCount int64           `json:"out_of_stock_count"`
}

type SearchResult struct {
	Items   []model.StockItem `json:"data"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	Summary SearchSummary     `json:"summary"`
}

// SortColumns maps accepted sort keys to stock_items columns.
var SortColumns = map[string]string{
	"created_at":         "created_at",
	"updated_at":         "updated_at",
	"last_movement_at":   "last_movement_at",
	"quantity":           "quantity",
	"available_quantity": "available_quantity",
	"product_id":         "product_id",
}
