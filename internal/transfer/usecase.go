package transfer

import (
	"context"

	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
)

// UseCase moves stock between two locations of a store in two legs. Each leg
// applies to every item of the transfer or to none.
type UseCase interface {
	CreateTransfer(ctx context.Context, input *dto.CreateTransferInput) (*model.StockTransfer, error)
	GetTransfer(ctx context.Context, storeID, id string) (*model.StockTransfer, error)
	ListTransfers(ctx context.Context, filters *dto.TransferFilters) ([]model.StockTransfer, int, error)

	Ship(ctx context.Context, storeID, id string, actor model.Actor) (*model.StockTransfer, error)
	Receive(ctx context.Context, storeID, id string, actor model.Actor) (*model.StockTransfer, error)
	Cancel(ctx context.Context, storeID, id string, actor model.Actor) (*model.StockTransfer, error)
}
