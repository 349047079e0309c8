package testutil

import (
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/alert"
	alertrepo "github.com/fekuna/omnipos-stock-service/internal/alert/repository"
	alertuc "github.com/fekuna/omnipos-stock-service/internal/alert/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/location"
	locationrepo "github.com/fekuna/omnipos-stock-service/internal/location/repository"
	locationuc "github.com/fekuna/omnipos-stock-service/internal/location/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/movement"
	movementrepo "github.com/fekuna/omnipos-stock-service/internal/movement/repository"
	movementuc "github.com/fekuna/omnipos-stock-service/internal/movement/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/retry"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockrepo "github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	stockuc "github.com/fekuna/omnipos-stock-service/internal/stock/usecase"
	"github.com/fekuna/omnipos-stock-service/internal/transfer"
	transferrepo "github.com/fekuna/omnipos-stock-service/internal/transfer/repository"
	transferuc "github.com/fekuna/omnipos-stock-service/internal/transfer/usecase"
	"github.com/jmoiron/sqlx"
)

// DefaultThreshold is the store-wide low-stock threshold of a Stack.
const DefaultThreshold = 5

// Stack is the ledger wired on an embedded database, the way cmd wires it.
type Stack struct {
	DB        *sqlx.DB
	TxM       *database.TxManager
	StockRepo stock.Repository
	AlertRepo alert.Repository
	Locations location.UseCase
	Movements movement.UseCase
	Alerts    alert.UseCase
	Stock     stock.UseCase
	Transfers transfer.UseCase
}

type StackOption func(*stackConfig)

type stackConfig struct {
	stockRepo func(stock.Repository) stock.Repository
	options   []stockuc.Option
}

// WithStockRepo wraps the stock repository, e.g. to inject failures.
func WithStockRepo(wrap func(stock.Repository) stock.Repository) StackOption {
	return func(c *stackConfig) { c.stockRepo = wrap }
}

func WithStockOptions(opts ...stockuc.Option) StackOption {
	return func(c *stackConfig) { c.options = append(c.options, opts...) }
}

func NewStack(t testing.TB, opts ...StackOption) *Stack {
	t.Helper()
	cfg := &stackConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	db := NewDB(t)
	log := logger.NewNop()
	txm := database.NewTxManager(db)
	policy := retry.Policy{Attempts: 3, Backoff: time.Millisecond}

	var stockRepo stock.Repository = stockrepo.NewPGRepository(db)
	if cfg.stockRepo != nil {
		stockRepo = cfg.stockRepo(stockRepo)
	}
	alertRepo := alertrepo.NewPGRepository(db)

	locations := locationuc.NewLocationUseCase(locationrepo.NewPGRepository(db), txm, log)
	movements := movementuc.NewMovementUseCase(movementrepo.NewPGRepository(db), log)
	alerts := alertuc.NewAlertUseCase(alertRepo, DefaultThreshold, log)
	ledger := stockuc.NewStockUseCase(stockRepo, locations, movements, alerts, txm,
		stockuc.Config{Retry: policy}, log, cfg.options...)
	transfers := transferuc.NewTransferUseCase(transferrepo.NewPGRepository(db), locations, ledger, txm, policy, log)

	return &Stack{
		DB:        db,
		TxM:       txm,
		StockRepo: stockRepo,
		AlertRepo: alertRepo,
		Locations: locations,
		Movements: movements,
		Alerts:    alerts,
		Stock:     ledger,
		Transfers: transfers,
	}
}
