package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Reconciler recomputes every pack balance and reports how many it corrected.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// ReconcilePacks returns the cron func for the pack reconciliation sweep. Each
// run is bounded by timeout.
func ReconcilePacks(r Reconciler, logger *slog.Logger, timeout time.Duration) func() {
	return func() {
		logger.Info("Running job: ReconcilePacks")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		corrected, err := r.ReconcileAll(ctx)
		if err != nil {
			logger.Error("error reconciling packs", slog.Any("error", err), slog.Int("corrected", corrected))
			return
		}

		if corrected == 0 {
			logger.Info("No pack balance needed correction.")
			return
		}
		logger.Info("pack balances corrected", slog.Int("corrected", corrected))
	}
}
