package dto

import "github.com/fekuna/omnipos-stock-service/internal/model"

type TransferFilters struct {
	StoreID string
	Status  model.TransferStatus
	Page    int
	Limit   int
}

type TransferItemInput struct {
	ProductID           string
	VariationID         *string
	VariationAttributes model.Attributes
	Quantity            int64
}

type CreateTransferInput struct {
	StoreID        string
	FromLocationID string
	ToLocationID   string
	Notes          string
	Items          []TransferItemInput
	Actor          model.Actor
}
