package model

import "time"

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferInTransit TransferStatus = "in_transit"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted || s == TransferCancelled
}

type StockTransfer struct {
	BaseModel
	StoreID        string         `db:"store_id" json:"store_id"`
	FromLocationID string         `db:"from_location_id" json:"from_location_id"`
	ToLocationID   string         `db:"to_location_id" json:"to_location_id"`
	Status         TransferStatus `db:"status" json:"status"`
	Notes          string         `db:"notes" json:"notes"`
	ShippedAt      *time.Time     `db:"shipped_at" json:"shipped_at,omitempty"`
	ShippedBy      *string        `db:"shipped_by" json:"shipped_by,omitempty"`
	ReceivedAt     *time.Time     `db:"received_at" json:"received_at,omitempty"`
	ReceivedBy     *string        `db:"received_by" json:"received_by,omitempty"`
	CancelledAt    *time.Time     `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy    *string        `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedBy      string         `db:"created_by" json:"created_by"`
	Items          []TransferItem `db:"-" json:"items"`
}

type TransferItem struct {
	ID                  string     `db:"id" json:"id"`
	TransferID          string     `db:"transfer_id" json:"transfer_id"`
	Position            int        `db:"position" json:"position"`
	ProductID           string     `db:"product_id" json:"product_id"`
	VariationID         *string    `db:"variation_id" json:"variation_id,omitempty"`
	Quantity            int64      `db:"quantity" json:"quantity"`
	VariationAttributes Attributes `db:"variation_attributes" json:"variation_attributes"`
}
