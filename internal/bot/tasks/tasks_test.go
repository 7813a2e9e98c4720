package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fridgebot/fridgebot/internal/database"
)

type fakeStore struct {
	database.Store

	vacuumErr  error
	vacuumRuns int
	statsErr   error
	statsRuns  int

	expiryErr error
	expiryAt  time.Time
	deleted   int64
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error {
	f.vacuumRuns++
	return f.vacuumErr
}

func (f *fakeStore) Stats(context.Context) (*database.Stats, error) {
	f.statsRuns++
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &database.Stats{Users: 1, Products: 2, Recipes: 3, InventoryItems: 4}, nil
}

func (f *fakeStore) DeleteExpiredInventory(_ context.Context, now time.Time) (int64, error) {
	f.expiryAt = now
	return f.deleted, f.expiryErr
}

func testDeps(store database.Store) TaskDeps {
	return TaskDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:  store,
		Now:    func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	got := RegisterAllTasks(testDeps(&fakeStore{}))
	for _, name := range []string{"sql_maintenance", "inventory_expiry"} {
		if got[name] == nil {
			t.Errorf("task %q not registered", name)
		}
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		err           error
		statsErr      error
		wantErr       bool
		wantStatsRuns int
	}{
		{name: "success", wantStatsRuns: 1},
		{name: "failure", err: errors.New("disk full"), wantErr: true},
		{name: "stats failure is not fatal", statsErr: errors.New("locked"), wantStatsRuns: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &fakeStore{vacuumErr: tt.err, statsErr: tt.statsErr}
			err := newSQLMaintenanceTask(testDeps(store))(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("task error = %v, wantErr %v", err, tt.wantErr)
			}
			if store.vacuumRuns != 1 {
				t.Errorf("RunSQLMaintenance called %d times, want 1", store.vacuumRuns)
			}
			if store.statsRuns != tt.wantStatsRuns {
				t.Errorf("Stats called %d times, want %d", store.statsRuns, tt.wantStatsRuns)
			}
		})
	}
}

func TestInventoryExpiryTask(t *testing.T) {
	t.Parallel()

	store := &fakeStore{deleted: 3}
	deps := testDeps(store)
	if err := newInventoryExpiryTask(deps)(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}
	if !store.expiryAt.Equal(deps.Now()) {
		t.Errorf("DeleteExpiredInventory called with %v, want %v", store.expiryAt, deps.Now())
	}

	failing := &fakeStore{expiryErr: context.DeadlineExceeded}
	err := newInventoryExpiryTask(testDeps(failing))(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("task error = %v, want deadline exceeded", err)
	}
}
