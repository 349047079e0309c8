package reconciler

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/location"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"go.uber.org/zap"
)

// Reconciler periodically recomputes every location counter from the ledger.
type Reconciler struct {
	uc       location.UseCase
	interval time.Duration
	logger   logger.ZapLogger
}

func NewReconciler(uc location.UseCase, interval time.Duration, log logger.ZapLogger) *Reconciler {
	return &Reconciler{
		uc:       uc,
		interval: interval,
		logger:   log,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting location reconciler", zap.Duration("interval", r.interval))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping location reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce returns the number of locations whose counter had drifted.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	results, err := r.uc.ReconcileAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("Failed to reconcile locations", zap.Error(err))
		}
		return 0
	}

	drifted := 0
	for _, res := range results {
		if res.Drift != 0 {
			drifted++
		}
	}
	r.logger.Debug("Reconciled locations", zap.Int("locations", len(results)), zap.Int("drifted", drifted))
	return drifted
}
