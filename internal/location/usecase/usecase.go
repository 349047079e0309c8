package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/location"
	"github.com/fekuna/omnipos-stock-service/internal/location/dto"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const reconcileParallelism = 4

type locationUseCase struct {
	repo   location.Repository
	txm    database.Transactor
	logger logger.ZapLogger
}

func NewLocationUseCase(repo location.Repository, txm database.Transactor, log logger.ZapLogger) location.UseCase {
	return &locationUseCase{
		repo:   repo,
		txm:    txm,
		logger: log,
	}
}

func (uc *locationUseCase) CreateLocation(ctx context.Context, input *dto.CreateLocationInput) (*model.InventoryLocation, error) {
	name := strings.TrimSpace(input.Name)
	if input.StoreID == "" {
		return nil, apperr.Validation("store is required")
	}
	if name == "" {
		return nil, apperr.Validation("location name is required")
	}
	if !input.Type.Valid() {
		return nil, apperr.Validation("invalid location type %q", input.Type)
	}

	now := time.Now().UTC()
	loc := &model.InventoryLocation{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		StoreID:      input.StoreID,
		Name:         name,
		Type:         input.Type,
		IsActive:     true,
		CurrentStock: 0,
	}

	if err := uc.repo.Create(ctx, loc); err != nil {
		return nil, err
	}

	uc.logger.Info("location created", zap.String("location_id", loc.ID), zap.String("store_id", loc.StoreID))
	return loc, nil
}

func (uc *locationUseCase) GetLocation(ctx context.Context, storeID, id string) (*model.InventoryLocation, error) {
	loc, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil || (storeID != "" && loc.StoreID != storeID) {
		return nil, apperr.NotFound("location %s", id)
	}
	return loc, nil
}

func (uc *locationUseCase) LockLocation(ctx context.Context, storeID, id string) (*model.InventoryLocation, error) {
	loc, err := uc.repo.LockByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil || (storeID != "" && loc.StoreID != storeID) {
		return nil, apperr.NotFound("location %s", id)
	}
	return loc, nil
}

func (uc *locationUseCase) UpdateLocation(ctx context.Context, input *dto.UpdateLocationInput) (*model.InventoryLocation, error) {
	var loc *model.InventoryLocation
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		loc, err = uc.LockLocation(ctx, input.StoreID, input.ID)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperr.Validation("location name cannot be empty")
			}
			loc.Name = name
		}
		if input.Type != nil {
			if !input.Type.Valid() {
				return apperr.Validation("invalid location type %q", *input.Type)
			}
			loc.Type = *input.Type
		}
		if input.IsActive != nil {
			// Shipped goods can only land on an active location.
			if loc.IsActive && !*input.IsActive {
				inbound, err := uc.repo.CountTransfersInto(ctx, loc.ID, model.TransferInTransit)
				if err != nil {
					return err
				}
				if inbound > 0 {
					return apperr.InvalidOperation("location %s has %d transfer(s) in transit to it", loc.ID, inbound)
				}
			}
			loc.IsActive = *input.IsActive
		}
		loc.UpdatedAt = time.Now().UTC()

		return uc.repo.Update(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (uc *locationUseCase) ListLocations(ctx context.Context, storeID string) ([]model.InventoryLocation, error) {
	if storeID == "" {
		return nil, apperr.Validation("store is required")
	}
	return uc.repo.FindAll(ctx, &dto.LocationFilters{StoreID: storeID, ActiveOnly: true})
}

func (uc *locationUseCase) AdjustLocationCounter(ctx context.Context, id string, delta int64) error {
	if delta == 0 {
		return nil
	}
	return uc.repo.AdjustStock(ctx, id, delta)
}

func (uc *locationUseCase) Reconcile(ctx context.Context, storeID, id string) (*dto.ReconcileResult, error) {
	var result *dto.ReconcileResult
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		// Ledger writers add to the counter; hold them off while it is recomputed.
		loc, err := uc.LockLocation(ctx, storeID, id)
		if err != nil {
			return err
		}
		sum, err := uc.repo.SumStockItems(ctx, id)
		if err != nil {
			return err
		}
		result = &dto.ReconcileResult{
			LocationID: id,
			Previous:   loc.CurrentStock,
			Reconciled: sum,
			Drift:      loc.CurrentStock - sum,
		}
		if result.Drift == 0 {
			return nil
		}
		return uc.repo.SetStock(ctx, id, sum)
	})
	if err != nil {
		return nil, err
	}

	if result.Drift != 0 {
		uc.logger.Warn("location counter drift repaired",
			zap.String("location_id", id),
			zap.Int64("previous", result.Previous),
			zap.Int64("reconciled", result.Reconciled),
		)
	}
	return result, nil
}

// ReconcileAll repairs every location, a few at a time. Results keep the
// order of the location listing.
func (uc *locationUseCase) ReconcileAll(ctx context.Context) ([]dto.ReconcileResult, error) {
	locations, err := uc.repo.FindAll(ctx, &dto.LocationFilters{})
	if err != nil {
		return nil, err
	}

	results := make([]dto.ReconcileResult, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileParallelism)
	for i, loc := range locations {
		g.Go(func() error {
			res, err := uc.Reconcile(gctx, loc.StoreID, loc.ID)
			if err != nil {
				return fmt.Errorf("reconcile location %s: %w", loc.ID, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
