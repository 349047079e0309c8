package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/alert"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventLowStockRaised = "LowStockAlertRaised"
	batchSize           = 50
)

type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type LowStockEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   LowStockPayload `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type LowStockPayload struct {
	AlertID           string  `json:"alert_id"`
	StoreID           string  `json:"store_id"`
	StockItemID       string  `json:"stock_item_id"`
	ProductID         string  `json:"product_id"`
	VariationID       *string `json:"variation_id,omitempty"`
	CurrentQuantity   int64   `json:"current_quantity"`
	ThresholdQuantity int64   `json:"threshold_quantity"`
	ThresholdType     string  `json:"threshold_type"`
}

// Notifier publishes active alerts that have not been announced yet. Delivery
// is at least once: an alert is marked only after the broker accepted it.
type Notifier struct {
	repo      alert.Repository
	publisher Publisher
	interval  time.Duration
	logger    logger.ZapLogger
}

func NewNotifier(repo alert.Repository, publisher Publisher, interval time.Duration, log logger.ZapLogger) *Notifier {
	return &Notifier{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		logger:    log,
	}
}

func (n *Notifier) Start(ctx context.Context) {
	n.logger.Info("Starting low stock notifier", zap.Duration("interval", n.interval))
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Stopping low stock notifier")
			return
		case <-ticker.C:
			if _, err := n.RunOnce(ctx); err != nil && ctx.Err() == nil {
				n.logger.Error("Failed to publish low stock alerts", zap.Error(err))
			}
		}
	}
}

// RunOnce publishes one batch and returns how many alerts were announced.
func (n *Notifier) RunOnce(ctx context.Context) (int, error) {
	alerts, err := n.repo.FindPendingNotifications(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range alerts {
		a := &alerts[i]
		value, err := json.Marshal(newEvent(a))
		if err != nil {
			return sent, err
		}
		if err := n.publisher.Publish(ctx, []byte(a.StockItemID), value); err != nil {
			return sent, err
		}
		if err := n.repo.MarkNotified(ctx, a.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func newEvent(a *model.LowStockAlert) LowStockEvent {
	return LowStockEvent{
		EventID:   uuid.New().String(),
		EventType: EventLowStockRaised,
		Payload: LowStockPayload{
			AlertID:           a.ID,
			StoreID:           a.StoreID,
			StockItemID:       a.StockItemID,
			ProductID:         a.ProductID,
			VariationID:       a.VariationID,
			CurrentQuantity:   a.CurrentQuantity,
			ThresholdQuantity: a.ThresholdQuantity,
			ThresholdType:     string(a.ThresholdType),
		},
		Timestamp: time.Now().UTC(),
	}
}
