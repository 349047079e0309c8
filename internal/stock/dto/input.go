package dto

import (
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/shopspring/decimal"
)

type ReceiveInput struct {
	StoreID             string
	ProductID           string
	VariationID         *string
	VariationAttributes model.Attributes
	LocationID          string
	Quantity            int64
	ReservedQuantity    int64 // reserved straight away, normally 0
	SellingPrice        decimal.NullDecimal
	LowStockThreshold   *int64
	Reason              string
	ReferenceType       model.ReferenceType // defaults to receipt
	ReferenceID         *string
	Actor               model.Actor
}

type SetQuantityInput struct {
	StoreID     string
	StockItemID string
	NewQuantity int64
	Reason      string
	Actor       model.Actor
}

// ReservationInput serves both Reserve and Release.
type ReservationInput struct {
	StoreID     string
	StockItemID string
	Quantity    int64
	Reason      string
	ReferenceID *string
	Actor       model.Actor
}

type IssueInput struct {
	StoreID       string
	ProductID     string
	VariationID   *string
	LocationID    string
	Quantity      int64
	Reason        string
	ReferenceType model.ReferenceType
	ReferenceID   *string
	Actor         model.Actor
}

type OrderLine struct {
	StockItemID string
	Quantity    int64
}

type OrderInput struct {
	StoreID string
	OrderID string
	Lines   []OrderLine
	Actor   model.Actor
}
