package stock

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	movementdto "github.com/fekuna/omnipos-stock-service/internal/movement/dto"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
)

type UseCase interface {
	Receive(ctx context.Context, input *dto.ReceiveInput) (*model.StockItem, error)
	SetQuantity(ctx context.Context, input *dto.SetQuantityInput) (*model.StockItem, error)
	Reserve(ctx context.Context, input *dto.ReservationInput) (*model.StockItem, error)
	Release(ctx context.Context, input *dto.ReservationInput) (*model.StockItem, error)

	// Issue debits a (product, variation, location) tuple, e.g. the source
	// leg of a transfer.
	Issue(ctx context.Context, input *dto.IssueInput) (*model.StockItem, error)

	// Order-level reservations apply every line or none and are safe to
	// replay for the same order id.
	ReserveOrder(ctx context.Context, input *dto.OrderInput) ([]model.StockItem, error)
	ReleaseOrder(ctx context.Context, input *dto.OrderInput) ([]model.StockItem, error)

	GetStockItem(ctx context.Context, storeID, id string) (*model.StockItem, error)
	Search(ctx context.Context, filters *dto.SearchFilters) (*dto.SearchResult, error)
	AuditStockItem(ctx context.Context, storeID, id string) (*movementdto.AuditReport, error)

	// InvalidateSearch drops cached search pages of a store. Ledger calls
	// made inside a caller's transaction leave this to the caller.
	InvalidateSearch(ctx context.Context, storeID string)
}
