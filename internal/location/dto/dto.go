package dto

type LocationFilters struct {
	StoreID    string // empty means every store
	ActiveOnly bool
}

type ReconcileResult struct {
	LocationID string `json:"location_id"`
	Previous   int64  `json:"previous"`
	Reconciled int64  `json:"reconciled"`
	Drift      int64  `json:"drift"` // previous - reconciled
}
