package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/fridgebot/fridgebot/internal/bot/tasks"
	"github.com/fridgebot/fridgebot/internal/config"
)

func noopTask(context.Context) error { return nil }

func TestScheduler_StartSchedulesEnabledTasks(t *testing.T) {
	t.Parallel()

	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"sql_maintenance":  {Enabled: true, Schedule: "0 3 * * 0"},
		"inventory_expiry": {Enabled: false, Schedule: "0 4 * * *"},
		"unknown":          {Enabled: true, Schedule: "0 5 * * *"},
		"bad_cron":         {Enabled: true, Schedule: "not a cron"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"sql_maintenance":  noopTask,
		"inventory_expiry": noopTask,
		"bad_cron":         noopTask,
	}

	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})

	names := s.JobNames()
	if len(names) != 1 || names[0] != "sql_maintenance" {
		t.Errorf("JobNames() = %v, want [sql_maintenance]", names)
	}

	if err := s.Start(); err == nil {
		t.Error("second Start() error = nil, want already running")
	}
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v, want nil", err)
	}
}
