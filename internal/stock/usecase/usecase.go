package usecase

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/alert"
	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/location"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/movement"
	movementdto "github.com/fekuna/omnipos-stock-service/internal/movement/dto"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/retry"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	lockAttempts   = 3
	lockRetryDelay = 100 * time.Millisecond
)

type Config struct {
	Retry          retry.Policy
	LockTTL        time.Duration
	SearchCacheTTL time.Duration
}

// Locker is a best-effort distributed lock. The versioned update is what
// keeps the ledger consistent; the lock only cuts down on lost updates.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type SearchCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
	Incr(ctx context.Context, key string) (int64, error)
}

type Option func(*stockUseCase)

func WithLocker(l Locker) Option {
	return func(uc *stockUseCase) { uc.locker = l }
}

func WithSearchCache(c SearchCache) Option {
	return func(uc *stockUseCase) { uc.cache = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(uc *stockUseCase) { uc.tracer = t }
}

type stockUseCase struct {
	repo      stock.Repository
	locations location.UseCase
	movements movement.UseCase
	alerts    alert.UseCase
	txm       database.Transactor
	cfg       Config
	locker    Locker
	cache     SearchCache
	tracer    trace.Tracer
	ops       metric.Int64Counter
	conflicts metric.Int64Counter
	logger    logger.ZapLogger
}

func NewStockUseCase(
	repo stock.Repository,
	locations location.UseCase,
	movements movement.UseCase,
	alerts alert.UseCase,
	txm database.Transactor,
	cfg Config,
	log logger.ZapLogger,
	opts ...Option,
) stock.UseCase {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Second
	}
	if cfg.SearchCacheTTL <= 0 {
		cfg.SearchCacheTTL = 30 * time.Second
	}

	meter := otel.Meter("stock-service/stock")
	ops, err := meter.Int64Counter("stock.ledger.operations", metric.WithDescription("Ledger operations by outcome"))
	if err != nil {
		ops = noop.Int64Counter{}
	}
	conflicts, err := meter.Int64Counter("stock.ledger.conflicts", metric.WithDescription("Optimistic-lock conflicts retried"))
	if err != nil {
		conflicts = noop.Int64Counter{}
	}

	uc := &stockUseCase{
		repo:      repo,
		locations: locations,
		movements: movements,
		alerts:    alerts,
		txm:       txm,
		cfg:       cfg,
		tracer:    otel.Tracer("stock-service/stock"),
		ops:       ops,
		conflicts: conflicts,
		logger:    log,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// mutation changes item in memory and describes the movement it makes. A nil
// movement means nothing changed and nothing is written.
type mutation func(item *model.StockItem) (*model.StockMovement, error)

func (uc *stockUseCase) Receive(ctx context.Context, in *dto.ReceiveInput) (out *model.StockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.Receive")
	defer func() { uc.finish(ctx, span, "receive", err) }()

	if err := validateReceive(in); err != nil {
		return nil, err
	}
	key := tupleLockKey(in.StoreID, in.ProductID, in.VariationID, in.LocationID)
	err = uc.run(ctx, in.StoreID, key, func(ctx context.Context) error {
		item, err := uc.receive(ctx, in)
		out = item
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateReceive(in *dto.ReceiveInput) error {
	switch {
	case in.StoreID == "":
		return apperr.Validation("store is required")
	case in.ProductID == "":
		return apperr.Validation("product is required")
	case in.LocationID == "":
		return apperr.Validation("location is required")
	case in.Quantity < 0:
		return apperr.Validation("quantity must not be negative, got %d", in.Quantity)
	case in.ReservedQuantity < 0:
		return apperr.Validation("reserved quantity must not be negative, got %d", in.ReservedQuantity)
	case in.ReservedQuantity > in.Quantity:
		return apperr.Validation("reserved quantity %d exceeds quantity %d", in.ReservedQuantity, in.Quantity)
	case in.LowStockThreshold != nil && *in.LowStockThreshold < 0:
		return apperr.Validation("low stock threshold must not be negative")
	case in.SellingPrice.Valid && in.SellingPrice.Decimal.IsNegative():
		return apperr.Validation("selling price must not be negative")
	}
	return nil
}

// receive credits the entry for the tuple, creating it when absent.
func (uc *stockUseCase) receive(ctx context.Context, in *dto.ReceiveInput) (*model.StockItem, error) {
	loc, err := uc.locations.GetLocation(ctx, in.StoreID, in.LocationID)
	if err != nil {
		return nil, err
	}
	if !loc.IsActive {
		return nil, apperr.NotFound("location %s is inactive", in.LocationID)
	}

	ref := in.ReferenceType
	if ref == "" {
		ref = model.RefReceipt
	}
	reason := in.Reason
	if reason == "" {
		reason = string(ref)
	}

	existing, err := uc.repo.FindByTuple(ctx, in.StoreID, in.ProductID, in.VariationID, in.LocationID)
	if err != nil {
		return nil, err
	}

	var item *model.StockItem
	switch {
	case existing != nil && in.Quantity == 0:
		item, err = uc.retag(ctx, existing, in)
	case existing != nil:
		item, err = uc.apply(ctx, existing, func(item *model.StockItem) (*model.StockMovement, error) {
			mergeDetails(item, in)
			prev := item.Quantity
			item.Quantity += in.Quantity
			return draft(in.Actor, model.MovementInbound, ref, in.Quantity, prev, item.Quantity, reason, in.ReferenceID), nil
		})
	default:
		item, err = uc.create(ctx, loc, in, ref, reason)
	}
	if err != nil {
		return nil, err
	}

	if in.ReservedQuantity > 0 {
		return uc.apply(ctx, item, reserve(in.ReservedQuantity, "reserved on receipt", in.ReferenceID, in.Actor))
	}
	return item, nil
}

// mergeDetails copies the descriptive fields given in a receipt onto item and
// reports whether any of them changed.
func mergeDetails(item *model.StockItem, in *dto.ReceiveInput) bool {
	changed := false
	if in.SellingPrice.Valid && (!item.SellingPrice.Valid || !item.SellingPrice.Decimal.Equal(in.SellingPrice.Decimal)) {
		item.SellingPrice = in.SellingPrice
		changed = true
	}
	if in.LowStockThreshold != nil && (item.LowStockThreshold == nil || *item.LowStockThreshold != *in.LowStockThreshold) {
		threshold := *in.LowStockThreshold
		item.LowStockThreshold = &threshold
		changed = true
	}
	if len(in.VariationAttributes) > 0 && !maps.Equal(item.VariationAttributes, in.VariationAttributes) {
		item.VariationAttributes = in.VariationAttributes
		changed = true
	}
	return changed
}

// retag stores a receipt that moves no units but changes the entry's details.
// The version is compared but not bumped: versions number movements.
func (uc *stockUseCase) retag(ctx context.Context, item *model.StockItem, in *dto.ReceiveInput) (*model.StockItem, error) {
	if !mergeDetails(item, in) {
		return item, nil
	}
	item.UpdatedAt = time.Now().UTC()
	item.UpdatedBy = in.Actor.UserID
	if err := uc.repo.UpdateVersioned(ctx, item, item.Version); err != nil {
		return nil, err
	}
	// The threshold may have moved across the available quantity.
	if err := uc.evaluate(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (uc *stockUseCase) create(ctx context.Context, loc *model.InventoryLocation, in *dto.ReceiveInput, ref model.ReferenceType, reason string) (*model.StockItem, error) {
	now := time.Now().UTC()
	attrs := in.VariationAttributes
	if attrs == nil {
		attrs = model.Attributes{}
	}

	item := &model.StockItem{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		StoreID:             in.StoreID,
		ProductID:           in.ProductID,
		VariationID:         in.VariationID,
		VariationAttributes: attrs,
		LocationID:          loc.ID,
		LocationName:        loc.Name,
		Quantity:            in.Quantity,
		Status:              model.InitialStatus(loc.Type),
		SellingPrice:        in.SellingPrice,
		LowStockThreshold:   in.LowStockThreshold,
		LastMovementAt:      now,
		CreatedBy:           in.Actor.UserID,
		UpdatedBy:           in.Actor.UserID,
	}
	item.Recalculate()

	// An empty entry has no history yet; its first movement will be sequence 1.
	if in.Quantity == 0 {
		if err := uc.repo.Create(ctx, item); err != nil {
			return nil, err
		}
		return item, uc.evaluate(ctx, item)
	}

	item.Version = 1
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	mv := draft(in.Actor, model.MovementInbound, ref, in.Quantity, 0, in.Quantity, reason, in.ReferenceID)
	if err := uc.record(ctx, item, mv, 0, now); err != nil {
		return nil, err
	}
	return item, nil
}

func (uc *stockUseCase) SetQuantity(ctx context.Context, in *dto.SetQuantityInput) (out *model.StockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.SetQuantity", trace.WithAttributes(attribute.String("stock_item_id", in.StockItemID)))
	defer func() { uc.finish(ctx, span, "set_quantity", err) }()

	if in.NewQuantity < 0 {
		return nil, apperr.Validation("quantity must not be negative, got %d", in.NewQuantity)
	}
	reason := in.Reason
	if reason == "" {
		reason = "manual adjustment"
	}

	err = uc.run(ctx, in.StoreID, itemLockKey(in.StockItemID), func(ctx context.Context) error {
		item, err := uc.mutate(ctx, in.StoreID, in.StockItemID, func(item *model.StockItem) (*model.StockMovement, error) {
			if in.NewQuantity < item.ReservedQuantity {
				return nil, apperr.InsufficientStock("cannot set quantity of %s to %d: %d units are reserved",
					item.ID, in.NewQuantity, item.ReservedQuantity)
			}
			delta := in.NewQuantity - item.Quantity
			if delta == 0 {
				return nil, nil
			}
			typ, size := model.MovementInbound, delta
			if delta < 0 {
				typ, size = model.MovementOutbound, -delta
			}
			prev := item.Quantity
			item.Quantity = in.NewQuantity
			return draft(in.Actor, typ, model.RefAdjustment, size, prev, item.Quantity, reason, nil), nil
		})
		out = item
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) Reserve(ctx context.Context, in *dto.ReservationInput) (out *model.StockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.Reserve", trace.WithAttributes(attribute.String("stock_item_id", in.StockItemID)))
	defer func() { uc.finish(ctx, span, "reserve", err) }()

	if in.Quantity <= 0 {
		return nil, apperr.Validation("reservation quantity must be positive, got %d", in.Quantity)
	}
	err = uc.run(ctx, in.StoreID, itemLockKey(in.StockItemID), func(ctx context.Context) error {
		item, err := uc.mutate(ctx, in.StoreID, in.StockItemID, reserve(in.Quantity, in.Reason, in.ReferenceID, in.Actor))
		out = item
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) Release(ctx context.Context, in *dto.ReservationInput) (out *model.StockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.Release", trace.WithAttributes(attribute.String("stock_item_id", in.StockItemID)))
	defer func() { uc.finish(ctx, span, "release", err) }()

	if in.Quantity <= 0 {
		return nil, apperr.Validation("release quantity must be positive, got %d", in.Quantity)
	}
	err = uc.run(ctx, in.StoreID, itemLockKey(in.StockItemID), func(ctx context.Context) error {
		item, err := uc.mutate(ctx, in.StoreID, in.StockItemID, release(in.Quantity, in.Reason, in.ReferenceID, in.Actor))
		out = item
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) Issue(ctx context.Context, in *dto.IssueInput) (out *model.StockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.Issue")
	defer func() { uc.finish(ctx, span, "issue", err) }()

	if in.Quantity <= 0 {
		return nil, apperr.Validation("issue quantity must be positive, got %d", in.Quantity)
	}
	ref := in.ReferenceType
	if ref == "" {
		ref = model.RefAdjustment
	}
	reason := in.Reason
	if reason == "" {
		reason = string(ref)
	}

	key := tupleLockKey(in.StoreID, in.ProductID, in.VariationID, in.LocationID)
	err = uc.run(ctx, in.StoreID, key, func(ctx context.Context) error {
		item, err := uc.repo.FindByTuple(ctx, in.StoreID, in.ProductID, in.VariationID, in.LocationID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("no stock of product %s at location %s", in.ProductID, in.LocationID)
		}
		out, err = uc.apply(ctx, item, func(item *model.StockItem) (*model.StockMovement, error) {
			if item.AvailableQuantity < in.Quantity {
				return nil, apperr.InsufficientStock("product %s at location %s has %d available, %d requested",
					in.ProductID, in.LocationID, item.AvailableQuantity, in.Quantity)
			}
			prev := item.Quantity
			item.Quantity -= in.Quantity
			if item.Quantity == 0 && ref == model.RefTransferOut &&
				item.Status != model.StockDamaged && item.Status != model.StockReturned {
				item.Status = model.StockTransferred
			}
			return draft(in.Actor, model.MovementOutbound, ref, in.Quantity, prev, item.Quantity, reason, in.ReferenceID), nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *stockUseCase) ReserveOrder(ctx context.Context, in *dto.OrderInput) (out []model.StockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.ReserveOrder", trace.WithAttributes(attribute.String("order_id", in.OrderID)))
	defer func() { uc.finish(ctx, span, "reserve_order", err) }()

	lines, err := orderLines(in)
	if err != nil {
		return nil, err
	}
	orderID := in.OrderID
	reason := "order " + orderID

	err = uc.run(ctx, in.StoreID, "", func(ctx context.Context) error {
		out = make([]model.StockItem, 0, len(lines))
		for _, line := range lines {
			done, err := uc.movements.HasReference(ctx, line.StockItemID, model.RefReservation, orderID)
			if err != nil {
				return err
			}
			var item *model.StockItem
			if done {
				item, err = uc.load(ctx, in.StoreID, line.StockItemID)
			} else {
				item, err = uc.mutate(ctx, in.StoreID, line.StockItemID, reserve(line.Quantity, reason, &orderID, in.Actor))
			}
			if err != nil {
				return err
			}
			out = append(out, *item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReleaseOrder undoes the reservations of an order. Lines that were never
// reserved, or already released, are skipped.
func (uc *stockUseCase) ReleaseOrder(ctx context.Context, in *dto.OrderInput) (out []model.StockItem, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.ReleaseOrder", trace.WithAttributes(attribute.String("order_id", in.OrderID)))
	defer func() { uc.finish(ctx, span, "release_order", err) }()

	lines, err := orderLines(in)
	if err != nil {
		return nil, err
	}
	orderID := in.OrderID
	reason := "order " + orderID + " cancelled"

	err = uc.run(ctx, in.StoreID, "", func(ctx context.Context) error {
		out = make([]model.StockItem, 0, len(lines))
		for _, line := range lines {
			reserved, err := uc.movements.HasReference(ctx, line.StockItemID, model.RefReservation, orderID)
			if err != nil {
				return err
			}
			released, err := uc.movements.HasReference(ctx, line.StockItemID, model.RefRelease, orderID)
			if err != nil {
				return err
			}
			if !reserved || released {
				continue
			}

			qty := line.Quantity
			item, err := uc.mutate(ctx, in.StoreID, line.StockItemID, func(item *model.StockItem) (*model.StockMovement, error) {
				// reservations may have been released by hand in the meantime
				n := min(qty, item.ReservedQuantity)
				if n == 0 {
					return nil, nil
				}
				item.ReservedQuantity -= n
				return draft(in.Actor, model.MovementInbound, model.RefRelease, n, item.Quantity, item.Quantity, reason, &orderID), nil
			})
			if err != nil {
				return err
			}
			out = append(out, *item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// orderLines validates an order and folds repeated stock items into one line.
func orderLines(in *dto.OrderInput) ([]dto.OrderLine, error) {
	if in.StoreID == "" {
		return nil, apperr.Validation("store is required")
	}
	if in.OrderID == "" {
		return nil, apperr.Validation("order id is required")
	}
	if len(in.Lines) == 0 {
		return nil, apperr.Validation("order %s has no lines", in.OrderID)
	}

	index := map[string]int{}
	lines := make([]dto.OrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.StockItemID == "" {
			return nil, apperr.Validation("order line without stock item")
		}
		if l.Quantity <= 0 {
			return nil, apperr.Validation("order line quantity must be positive, got %d", l.Quantity)
		}
		if i, ok := index[l.StockItemID]; ok {
			lines[i].Quantity += l.Quantity
			continue
		}
		index[l.StockItemID] = len(lines)
		lines = append(lines, l)
	}
	return lines, nil
}

func (uc *stockUseCase) GetStockItem(ctx context.Context, storeID, id string) (*model.StockItem, error) {
	return uc.load(ctx, storeID, id)
}

func (uc *stockUseCase) AuditStockItem(ctx context.Context, storeID, id string) (*movementdto.AuditReport, error) {
	item, err := uc.load(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	report, err := uc.movements.Audit(ctx, item)
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		uc.logger.Warn("stock item history does not match its counts",
			zap.String("stock_item_id", id),
			zap.Int64("reconstructed", report.ReconstructedQuantity),
			zap.Int64("current", report.CurrentQuantity),
		)
	}
	return report, nil
}

func reserve(qty int64, reason string, refID *string, actor model.Actor) mutation {
	if reason == "" {
		reason = "reservation"
	}
	return func(item *model.StockItem) (*model.StockMovement, error) {
		if item.AvailableQuantity < qty {
			return nil, apperr.InsufficientStock("stock item %s has %d available, %d requested",
				item.ID, item.AvailableQuantity, qty)
		}
		item.ReservedQuantity += qty
		return draft(actor, model.MovementOutbound, model.RefReservation, qty, item.Quantity, item.Quantity, reason, refID), nil
	}
}

func release(qty int64, reason string, refID *string, actor model.Actor) mutation {
	if reason == "" {
		reason = "release"
	}
	return func(item *model.StockItem) (*model.StockMovement, error) {
		if qty > item.ReservedQuantity {
			return nil, apperr.InvalidOperation("cannot release %d from stock item %s: only %d reserved",
				qty, item.ID, item.ReservedQuantity)
		}
		item.ReservedQuantity -= qty
		return draft(actor, model.MovementInbound, model.RefRelease, qty, item.Quantity, item.Quantity, reason, refID), nil
	}
}

func draft(actor model.Actor, typ model.MovementType, ref model.ReferenceType, qty, prev, next int64, reason string, refID *string) *model.StockMovement {
	return &model.StockMovement{
		Type:             typ,
		Quantity:         qty,
		PreviousQuantity: prev,
		NewQuantity:      next,
		Reason:           reason,
		ReferenceType:    ref,
		ReferenceID:      refID,
		UserID:           actor.UserID,
		UserName:         actor.UserName,
	}
}

func itemLockKey(id string) string {
	return "lock:stock:" + id
}

func tupleLockKey(storeID, productID string, variationID *string, locationID string) string {
	parts := []string{"lock:stock", storeID, productID}
	if variationID != nil {
		parts = append(parts, *variationID)
	}
	parts = append(parts, locationID)
	return strings.Join(parts, ":")
}

func (uc *stockUseCase) finish(ctx context.Context, span trace.Span, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperr.Code(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if outcome == "internal" {
			uc.logger.Error("stock operation failed", zap.String("operation", op), zap.Error(err))
		}
	}
	uc.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
	span.End()
}

func (uc *stockUseCase) load(ctx context.Context, storeID, id string) (*model.StockItem, error) {
	item, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock item %s: %w", id, err)
	}
	if item == nil || (storeID != "" && item.StoreID != storeID) {
		return nil, apperr.NotFound("stock item %s", id)
	}
	return item, nil
}
