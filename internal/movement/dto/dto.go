package dto

type AuditBreak struct {
	Sequence int64  `json:"sequence"`
	Reason   string `json:"reason"`
}

type AuditReport struct {
	StockItemID           string       `json:"stock_item_id"`
	Movements             int          `json:"movements"`
	ReconstructedQuantity int64        `json:"reconstructed_quantity"`
	ReconstructedReserved int64        `json:"reconstructed_reserved"`
	CurrentQuantity       int64        `json:"current_quantity"`
	CurrentReserved       int64        `json:"current_reserved"`
	Consistent            bool         `json:"consistent"`
	Breaks                []AuditBreak `json:"breaks,omitempty"`
}
