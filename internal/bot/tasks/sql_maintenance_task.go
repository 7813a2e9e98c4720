package tasks

import (
	"context"
	"fmt"
	"time"
)

const maintenanceTimeout = 10 * time.Minute

// newSQLMaintenanceTask vacuums the database and logs the table sizes it
// left behind.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		startTime := time.Now()
		timeoutCtx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()

		if err := deps.Store.RunSQLMaintenance(timeoutCtx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		stats, err := deps.Store.Stats(timeoutCtx)
		if err != nil {
			// The vacuum itself succeeded.
			log.WarnContext(ctx, "SQL maintenance completed, counting rows failed", "error", err, "duration", time.Since(startTime))
			return nil
		}
		log.InfoContext(ctx, "SQL maintenance completed",
			"duration", time.Since(startTime),
			"users", stats.Users,
			"products", stats.Products,
			"recipes", stats.Recipes,
			"inventory_items", stats.InventoryItems,
		)
		return nil
	}
}
