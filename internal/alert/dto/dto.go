package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

type EvaluateInput struct {
	StockItemID       string
	StoreID           string
	ProductID         string
	VariationID       *string
	AvailableQuantity int64
	Threshold         int64
}

type AlertFilters struct {
	StoreID string
	Status  model.AlertStatus // empty means any
	Page    int
	Limit   int
}
