package model

import "time"

type MovementType string

const (
	MovementInbound  MovementType = "inbound"
	MovementOutbound MovementType = "outbound"
)

// ReferenceType says which ledger operation produced a movement.
type ReferenceType string

const (
	RefReceipt     ReferenceType = "receipt"
	RefAdjustment  ReferenceType = "adjustment"
	RefReservation ReferenceType = "reservation"
	RefRelease     ReferenceType = "release"
	RefTransferOut ReferenceType = "transfer_out"
	RefTransferIn  ReferenceType = "transfer_in"
)

// StockMovement is an append-only audit record. Sequence is the stock item
// version the movement produced, which orders an item's history.
type StockMovement struct {
	ID               string        `db:"id" json:"id"`
	StoreID          string        `db:"store_id" json:"store_id"`
	StockItemID      string        `db:"stock_item_id" json:"stock_item_id"`
	ProductID        string        `db:"product_id" json:"product_id"`
	VariationID      *string       `db:"variation_id" json:"variation_id,omitempty"`
	Type             MovementType  `db:"type" json:"type"`
	Quantity         int64         `db:"quantity" json:"quantity"`
	PreviousQuantity int64         `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int64         `db:"new_quantity" json:"new_quantity"`
	Reason           string        `db:"reason" json:"reason"`
	ReferenceType    ReferenceType `db:"reference_type" json:"reference_type"`
	ReferenceID      *string       `db:"reference_id" json:"reference_id,omitempty"`
	Sequence         int64         `db:"sequence" json:"sequence"`
	UserID           string        `db:"user_id" json:"user_id"`
	UserName         string        `db:"user_name" json:"user_name"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}
