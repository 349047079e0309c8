package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/model"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderCancelled = "OrderCancelled"
)

var systemActor = model.Actor{UserID: "system", UserName: "order-events"}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type OrderListener struct {
	consumer MessageReader
	uc       stock.UseCase
	logger   logger.ZapLogger
}

func NewOrderListener(consumer MessageReader, uc stock.UseCase, logger logger.ZapLogger) *OrderListener {
	return &OrderListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting Order Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Order Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID      string             `json:"id"`
	StoreID string             `json:"store_id"`
	Items   []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	StockItemID string `json:"stock_item_id"`
	Quantity    int64  `json:"quantity"`
}

func (l *OrderListener) processMessage(ctx context.Context, value []byte) {
	var event OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	input := &dto.OrderInput{
		StoreID: event.Payload.StoreID,
		OrderID: event.Payload.ID,
		Actor:   systemActor,
	}
	for _, item := range event.Payload.Items {
		input.Lines = append(input.Lines, dto.OrderLine{StockItemID: item.StockItemID, Quantity: item.Quantity})
	}

	var err error
	switch event.EventType {
	case EventOrderCreated:
		l.logger.Info("Processing OrderCreated event", zap.String("order_id", input.OrderID))
		_, err = l.uc.ReserveOrder(ctx, input)
	case EventOrderCancelled:
		l.logger.Info("Processing OrderCancelled event", zap.String("order_id", input.OrderID))
		_, err = l.uc.ReleaseOrder(ctx, input)
	default:
		return
	}
	if err == nil {
		return
	}

	fields := []zap.Field{
		zap.String("order_id", input.OrderID),
		zap.String("event_id", event.EventID),
		zap.String("code", apperr.Code(err)),
		zap.Error(err),
	}
	// the order service decides about backorders
	if errors.Is(err, apperr.ErrInsufficientStock) || errors.Is(err, apperr.ErrNotFound) {
		l.logger.Warn("Order could not be reserved", fields...)
		return
	}
	l.logger.Error("Failed to apply order event", fields...)
}
