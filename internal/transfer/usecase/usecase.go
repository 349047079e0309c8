package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/location"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/retry"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockdto "github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	"github.com/fekuna/omnipos-stock-service/internal/transfer/dto"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type transferUseCase struct {
	repo      transfer.Repository
	locations location.UseCase
	ledger    stock.UseCase
	txm       database.Transactor
	retry     retry.Policy
	tracer    trace.Tracer
	logger    logger.ZapLogger
}

func NewTransferUseCase(
	repo transfer.Repository,
	locations location.UseCase,
	ledger stock.UseCase,
	txm database.Transactor,
	policy retry.Policy,
	log logger.ZapLogger,
) transfer.UseCase {
	return &transferUseCase{
		repo:      repo,
		locations: locations,
		ledger:    ledger,
		txm:       txm,
		retry:     policy,
		tracer:    otel.Tracer("stock-service/transfer"),
		logger:    log,
	}
}

func (uc *transferUseCase) CreateTransfer(ctx context.Context, in *dto.CreateTransferInput) (*model.StockTransfer, error) {
	if in.StoreID == "" {
		return nil, apperr.Validation("store is required")
	}
	if in.FromLocationID == "" || in.ToLocationID == "" {
		return nil, apperr.Validation("source and destination locations are required")
	}
	if in.FromLocationID == in.ToLocationID {
		return nil, apperr.Validation("source and destination must differ")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("transfer has no items")
	}

	now := time.Now().UTC()
	t := &model.StockTransfer{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		StoreID:        in.StoreID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Status:         model.TransferPending,
		Notes:          in.Notes,
		CreatedBy:      in.Actor.UserID,
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			return nil, apperr.Validation("item %d has no product", i)
		}
		if it.Quantity <= 0 {
			return nil, apperr.Validation("item %d quantity must be positive, got %d", i, it.Quantity)
		}
		attrs := it.VariationAttributes
		if attrs == nil {
			attrs = model.Attributes{}
		}
		t.Items = append(t.Items, model.TransferItem{
			ID:                  uuid.New().String(),
			TransferID:          t.ID,
			Position:            i,
			ProductID:           it.ProductID,
			VariationID:         it.VariationID,
			Quantity:            it.Quantity,
			VariationAttributes: attrs,
		})
	}

	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		for _, id := range []string{in.FromLocationID, in.ToLocationID} {
			loc, err := uc.locations.GetLocation(ctx, in.StoreID, id)
			if err != nil {
				return err
			}
			if !loc.IsActive {
				return apperr.NotFound("location %s is inactive", id)
			}
		}
		return uc.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("transfer created", zap.String("transfer_id", t.ID), zap.Int("items", len(t.Items)))
	return t, nil
}

func (uc *transferUseCase) GetTransfer(ctx context.Context, storeID, id string) (*model.StockTransfer, error) {
	t, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || (storeID != "" && t.StoreID != storeID) {
		return nil, apperr.NotFound("transfer %s", id)
	}
	return t, nil
}

func (uc *transferUseCase) ListTransfers(ctx context.Context, f *dto.TransferFilters) ([]model.StockTransfer, int, error) {
	if f.StoreID == "" {
		return nil, 0, apperr.Validation("store is required")
	}
	switch f.Status {
	case "", model.TransferPending, model.TransferInTransit, model.TransferCompleted, model.TransferCancelled:
	default:
		return nil, 0, apperr.Validation("unknown transfer status %q", f.Status)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return uc.repo.FindAll(ctx, f)
}

func (uc *transferUseCase) Ship(ctx context.Context, storeID, id string, actor model.Actor) (*model.StockTransfer, error) {
	return uc.transition(ctx, "ship", storeID, id, model.TransferPending, func(ctx context.Context, t *model.StockTransfer) error {
		// Locked so the destination cannot be deactivated while this leg commits.
		dest, err := uc.locations.LockLocation(ctx, t.StoreID, t.ToLocationID)
		if err != nil {
			return err
		}
		if !dest.IsActive {
			return apperr.NotFound("location %s is inactive", dest.ID)
		}
		for _, it := range t.Items {
			_, err := uc.ledger.Issue(ctx, &stockdto.IssueInput{
				StoreID:       t.StoreID,
				ProductID:     it.ProductID,
				VariationID:   it.VariationID,
				LocationID:    t.FromLocationID,
				Quantity:      it.Quantity,
				Reason:        "transfer " + t.ID,
				ReferenceType: model.RefTransferOut,
				ReferenceID:   &t.ID,
				Actor:         actor,
			})
			if err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		t.Status = model.TransferInTransit
		t.ShippedAt = &now
		t.ShippedBy = &actor.UserID
		return nil
	})
}

func (uc *transferUseCase) Receive(ctx context.Context, storeID, id string, actor model.Actor) (*model.StockTransfer, error) {
	return uc.transition(ctx, "receive", storeID, id, model.TransferInTransit, func(ctx context.Context, t *model.StockTransfer) error {
		for _, it := range t.Items {
			_, err := uc.ledger.Receive(ctx, &stockdto.ReceiveInput{
				StoreID:             t.StoreID,
				ProductID:           it.ProductID,
				VariationID:         it.VariationID,
				VariationAttributes: it.VariationAttributes,
				LocationID:          t.ToLocationID,
				Quantity:            it.Quantity,
				Reason:              "transfer " + t.ID,
				ReferenceType:       model.RefTransferIn,
				ReferenceID:         &t.ID,
				Actor:               actor,
			})
			if err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		t.Status = model.TransferCompleted
		t.ReceivedAt = &now
		t.ReceivedBy = &actor.UserID
		return nil
	})
}

// Cancel is only possible before anything left the source location.
func (uc *transferUseCase) Cancel(ctx context.Context, storeID, id string, actor model.Actor) (*model.StockTransfer, error) {
	return uc.transition(ctx, "cancel", storeID, id, model.TransferPending, func(ctx context.Context, t *model.StockTransfer) error {
		now := time.Now().UTC()
		t.Status = model.TransferCancelled
		t.CancelledAt = &now
		t.CancelledBy = &actor.UserID
		return nil
	})
}

// transition runs one leg: every ledger call made by step joins a single
// transaction together with the status change, which is guarded by from.
func (uc *transferUseCase) transition(
	ctx context.Context,
	leg, storeID, id string,
	from model.TransferStatus,
	step func(ctx context.Context, t *model.StockTransfer) error,
) (out *model.StockTransfer, err error) {
	ctx, span := uc.tracer.Start(ctx, "transfer."+leg, trace.WithAttributes(attribute.String("transfer_id", id)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	err = retry.Do(ctx, uc.retry, func(err error) bool {
		return errors.Is(err, apperr.ErrConcurrencyConflict)
	}, func(ctx context.Context) error {
		return uc.txm.WithinTx(ctx, func(ctx context.Context) error {
			t, err := uc.GetTransfer(ctx, storeID, id)
			if err != nil {
				return err
			}
			if t.Status != from {
				return apperr.InvalidState("cannot %s transfer %s in state %s", leg, id, t.Status)
			}
			if err := step(ctx, t); err != nil {
				return err
			}
			t.UpdatedAt = time.Now().UTC()
			if err := uc.repo.UpdateStatus(ctx, t, from); err != nil {
				return err
			}
			out = t
			return nil
		})
	})
	if err != nil {
		uc.logger.Warn("transfer leg failed", zap.String("transfer_id", id), zap.String("leg", leg), zap.Error(err))
		return nil, err
	}

	uc.ledger.InvalidateSearch(ctx, out.StoreID)
	uc.logger.Info("transfer leg applied", zap.String("transfer_id", id), zap.String("leg", leg), zap.String("status", string(out.Status)))
	return out, nil
}
