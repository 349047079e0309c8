package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	alertdto "github.com/fekuna/omnipos-stock-service/internal/alert/dto"
	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// run executes fn as one transaction, retrying the whole unit when another
// writer won the version race. Inside a caller's transaction fn runs as is
// and the caller owns retries and cache invalidation.
func (uc *stockUseCase) run(ctx context.Context, storeID, lockKey string, fn func(ctx context.Context) error) error {
	if database.InTx(ctx) {
		return fn(ctx)
	}

	if lockKey != "" && uc.locker != nil {
		unlock, err := uc.lock(ctx, lockKey)
		if err != nil {
			return err
		}
		defer unlock()
	}

	err := retry.Do(ctx, uc.cfg.Retry, func(err error) bool {
		if errors.Is(err, apperr.ErrConcurrencyConflict) {
			uc.conflicts.Add(ctx, 1)
			return true
		}
		return false
	}, func(ctx context.Context) error {
		return uc.txm.WithinTx(ctx, fn)
	})
	if err != nil {
		return err
	}

	uc.InvalidateSearch(ctx, storeID)
	return nil
}

func (uc *stockUseCase) lock(ctx context.Context, key string) (func(), error) {
	value := uuid.New().String()
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.locker.AcquireLock(ctx, key, value, uc.cfg.LockTTL)
		if err != nil {
			uc.logger.Warn("failed to acquire lock, continuing on version check", zap.String("key", key), zap.Error(err))
			return func() {}, nil
		}
		if ok {
			return func() {
				if err := uc.locker.ReleaseLock(context.WithoutCancel(ctx), key, value); err != nil {
					uc.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return nil, apperr.Conflict("system busy, please try again later (lock %s)", key)
}

// mutate loads one item and applies fn to it. Must run inside a transaction.
func (uc *stockUseCase) mutate(ctx context.Context, storeID, id string, fn mutation) (*model.StockItem, error) {
	item, err := uc.load(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	return uc.apply(ctx, item, fn)
}

// apply is the single write path of the ledger: the new state is checked,
// written with a version compare-and-swap, and its movement, location counter
// and alert are updated in the same transaction.
func (uc *stockUseCase) apply(ctx context.Context, item *model.StockItem, fn mutation) (*model.StockItem, error) {
	before := item.Quantity

	mv, err := fn(item)
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return item, nil
	}

	item.Recalculate()
	if err := item.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("refusing to write stock item %s: %w", item.ID, err)
	}

	now := time.Now().UTC()
	expected := item.Version
	item.Version++
	item.LastMovementAt = now
	item.UpdatedAt = now
	item.UpdatedBy = mv.UserID

	if err := uc.repo.UpdateVersioned(ctx, item, expected); err != nil {
		return nil, err
	}
	if err := uc.record(ctx, item, mv, before, now); err != nil {
		return nil, err
	}
	return item, nil
}

// record appends the movement that produced item's current version and
// applies its side effects.
func (uc *stockUseCase) record(ctx context.Context, item *model.StockItem, mv *model.StockMovement, before int64, at time.Time) error {
	mv.StoreID = item.StoreID
	mv.StockItemID = item.ID
	mv.ProductID = item.ProductID
	mv.VariationID = item.VariationID
	mv.Sequence = item.Version
	mv.CreatedAt = at
	if err := uc.movements.Append(ctx, mv); err != nil {
		return fmt.Errorf("failed to append movement for %s: %w", item.ID, err)
	}

	if delta := item.Quantity - before; delta != 0 {
		if err := uc.locations.AdjustLocationCounter(ctx, item.LocationID, delta); err != nil {
			return fmt.Errorf("failed to adjust location %s: %w", item.LocationID, err)
		}
	}
	return uc.evaluate(ctx, item)
}

func (uc *stockUseCase) evaluate(ctx context.Context, item *model.StockItem) error {
	_, err := uc.alerts.Evaluate(ctx, &alertdto.EvaluateInput{
		StockItemID:       item.ID,
		StoreID:           item.StoreID,
		ProductID:         item.ProductID,
		VariationID:       item.VariationID,
		AvailableQuantity: item.AvailableQuantity,
		Threshold:         uc.alerts.ThresholdFor(item.LowStockThreshold),
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate low stock for %s: %w", item.ID, err)
	}
	return nil
}
