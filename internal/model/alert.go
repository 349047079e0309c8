package model

import "time"

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

type ThresholdType string

// ThresholdAbsolute compares available units against a fixed count.
const ThresholdAbsolute ThresholdType = "absolute"

type LowStockAlert struct {
	BaseModel
	StoreID           string        `db:"store_id" json:"store_id"`
	ProductID         string        `db:"product_id" json:"product_id"`
	VariationID       *string       `db:"variation_id" json:"variation_id,omitempty"`
	StockItemID       string        `db:"stock_item_id" json:"stock_item_id"`
	CurrentQuantity   int64         `db:"current_quantity" json:"current_quantity"`
	ThresholdQuantity int64         `db:"threshold_quantity" json:"threshold_quantity"`
	ThresholdType     ThresholdType `db:"threshold_type" json:"threshold_type"`
	Status            AlertStatus   `db:"status" json:"status"`
	NotificationSent  bool          `db:"notification_sent" json:"notification_sent"`
	ResolvedAt        *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
}
