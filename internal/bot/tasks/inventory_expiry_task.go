package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const expiryTimeout = 2 * time.Minute

// newInventoryExpiryTask removes inventory rows that outlived the shelf life
// of their product category.
func newInventoryExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "inventory_expiry")

	return func(ctx context.Context) error {
		startTime := time.Now()
		timeoutCtx, cancel := context.WithTimeout(ctx, expiryTimeout)
		defer cancel()

		deleted, err := deps.Store.DeleteExpiredInventory(timeoutCtx, deps.now().UTC())
		duration := time.Since(startTime)

		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			log.WarnContext(ctx, "Inventory expiry timed out or was cancelled", "error", err, "duration", duration)
			return fmt.Errorf("inventory expiry timed out or was cancelled: %w", err)
		case err != nil:
			log.ErrorContext(ctx, "Inventory expiry failed", "error", err, "duration", duration)
			return fmt.Errorf("inventory expiry failed: %w", err)
		}

		log.InfoContext(ctx, "Inventory expiry completed", "deleted", deleted, "duration", duration)
		return nil
	}
}
