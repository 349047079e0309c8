package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockAvailable   StockStatus = "available"
	StockReserved    StockStatus = "reserved"
	StockSold        StockStatus = "sold"
	StockDamaged     StockStatus = "damaged"
	StockReturned    StockStatus = "returned"
	StockTransferred StockStatus = "transferred"
)

func (s StockStatus) Valid() bool {
	switch s {
	case StockAvailable, StockReserved, StockSold, StockDamaged, StockReturned, StockTransferred:
		return true
	}
	return false
}

// StockItem is the ledger entry for one (product, variation, location) tuple.
type StockItem struct {
	BaseModel
	StoreID             string              `db:"store_id" json:"store_id"`
	ProductID           string              `db:"product_id" json:"product_id"`
	VariationID         *string             `db:"variation_id" json:"variation_id,omitempty"`
	VariationAttributes Attributes          `db:"variation_attributes" json:"variation_attributes"`
	LocationID          string              `db:"location_id" json:"location_id"`
	LocationName        string              `db:"location_name" json:"location_name"`
	Quantity            int64               `db:"quantity" json:"quantity"`
	ReservedQuantity    int64               `db:"reserved_quantity" json:"reserved_quantity"`
	AvailableQuantity   int64               `db:"available_quantity" json:"available_quantity"`
	Status              StockStatus         `db:"status" json:"status"`
	SellingPrice        decimal.NullDecimal `db:"selling_price" json:"selling_price"`
	LowStockThreshold   *int64              `db:"low_stock_threshold" json:"low_stock_threshold,omitempty"`
	Version             int64               `db:"version" json:"version"`
	LastMovementAt      time.Time           `db:"last_movement_at" json:"last_movement_at"`
	CreatedBy           string              `db:"created_by" json:"created_by"`
	UpdatedBy           string              `db:"updated_by" json:"updated_by"`
}

// Recalculate derives the available quantity and refreshes the lifecycle status.
func (s *StockItem) Recalculate() {
	s.AvailableQuantity = s.Quantity - s.ReservedQuantity
	s.Status = deriveStatus(s.Status, s.Quantity, s.AvailableQuantity)
}

// CheckInvariants fails when available != quantity - reserved, any of them is
// negative, or more is reserved than physically present.
func (s *StockItem) CheckInvariants() error {
	switch {
	case s.Quantity < 0:
		return fmt.Errorf("quantity %d is negative", s.Quantity)
	case s.ReservedQuantity < 0:
		return fmt.Errorf("reserved quantity %d is negative", s.ReservedQuantity)
	case s.ReservedQuantity > s.Quantity:
		return fmt.Errorf("reserved quantity %d exceeds quantity %d", s.ReservedQuantity, s.Quantity)
	case s.AvailableQuantity != s.Quantity-s.ReservedQuantity:
		return fmt.Errorf("available quantity %d != %d - %d", s.AvailableQuantity, s.Quantity, s.ReservedQuantity)
	}
	return nil
}

// Damaged and returned are properties of where the goods sit, so they survive
// quantity changes. Transferred marks an entry emptied by a transfer.
func deriveStatus(current StockStatus, quantity, available int64) StockStatus {
	switch current {
	case StockDamaged, StockReturned:
		return current
	}
	switch {
	case quantity == 0 && current == StockTransferred:
		return StockTransferred
	case quantity == 0:
		return StockSold
	case available == 0:
		return StockReserved
	default:
		return StockAvailable
	}
}

// InitialStatus is the status of stock received at a location of type t.
func InitialStatus(t LocationType) StockStatus {
	switch t {
	case LocationDamaged:
		return StockDamaged
	case LocationReturn:
		return StockReturned
	default:
		return StockAvailable
	}
}
