package model

type LocationType string

const (
	LocationWarehouse LocationType = "warehouse"
	LocationStore     LocationType = "store"
	LocationDisplay   LocationType = "display"
	LocationReturn    LocationType = "return"
	LocationDamaged   LocationType = "damaged"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationWarehouse, LocationStore, LocationDisplay, LocationReturn, LocationDamaged:
		return true
	}
	return false
}

type InventoryLocation struct {
	BaseModel
	StoreID      string       `db:"store_id" json:"store_id"`
	Name         string       `db:"name" json:"name"`
	Type         LocationType `db:"type" json:"type"`
	IsActive     bool         `db:"is_active" json:"is_active"`
	CurrentStock int64        `db:"current_stock" json:"current_stock"` // cached sum, see Reconcile
}
