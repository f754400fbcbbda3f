package tracker

import (
	"context"
	"strings"
	"testing"
	"time"

	"lobbywatch/internal/config"
	"lobbywatch/internal/gamesource"
	"lobbywatch/internal/store"

	"github.com/thejerf/suture/v4"
)

func TestDefaultTaskConfig(t *testing.T) {
	cfg := DefaultTaskConfig()
	if strings.Join(cfg.Enabled, ",") != "discovery,lobby_sweep,analysis_queue,stalled_analysis" {
		t.Fatalf("enabled = %v", cfg.Enabled)
	}
	idle := map[string]time.Duration{
		TaskDiscovery:       0,
		TaskAnalysisQueue:   5 * time.Second,
		TaskLobbySweep:      5 * time.Minute,
		TaskStalledAnalysis: time.Minute,
	}
	for name, want := range idle {
		if got := cfg.Settings[name].IdleDelay; got != want {
			t.Fatalf("%s idle = %v, want %v", name, got, want)
		}
		if cfg.Settings[name].Backoff.Next(0) != 5*time.Second {
			t.Fatalf("%s backoff does not start at 5s", name)
		}
	}
}

func TestTaskConfigFromTracker(t *testing.T) {
	cfg, err := TaskConfigFromTracker(config.TrackerConfig{
		DisableTasks:       []string{"lobby_sweep", " "},
		ExtraTasks:         []string{"tracked_players", "discovery"},
		QuietThresholdMins: 20,
		StallThresholdMins: 45,
	})
	if err != nil {
		t.Fatalf("task config: %v", err)
	}
	if strings.Join(cfg.Enabled, ",") != "discovery,analysis_queue,stalled_analysis,tracked_players" {
		t.Fatalf("enabled = %v", cfg.Enabled)
	}
	if cfg.QuietThreshold != 20*time.Minute || cfg.StallThreshold != 45*time.Minute {
		t.Fatalf("thresholds = %v / %v", cfg.QuietThreshold, cfg.StallThreshold)
	}
	if cfg.PlayerRecheck != 30*time.Minute {
		t.Fatalf("player recheck = %v, want default", cfg.PlayerRecheck)
	}
}

func TestTaskConfigRejectsUnknownNames(t *testing.T) {
	if _, err := TaskConfigFromTracker(config.TrackerConfig{DisableTasks: []string{"discover"}}); err == nil {
		t.Fatal("expected error for misspelled disabled task")
	}
	if _, err := TaskConfigFromTracker(config.TrackerConfig{ExtraTasks: []string{"push_to_s3"}}); err == nil {
		t.Fatal("expected error for unknown extra task")
	}
}

func TestServicesBuildsEnabledSubset(t *testing.T) {
	cfg := DefaultTaskConfig()
	cfg.Enabled = []string{TaskStalledAnalysis, TaskTrackedPlayers}
	services, err := Services(cfg, Deps{Source: gamesource.NewFake(), Store: store.NewMemory()})
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("services = %d, want 2", len(services))
	}
	for i, want := range cfg.Enabled {
		svc, ok := services[i].(*taskService)
		if !ok || svc.String() != want {
			t.Fatalf("service %d = %v, want %s", i, services[i], want)
		}
	}
}

func TestLaunchRunsTasksUnderSupervisor(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	if _, err := mem.CreateAnalysisEntryIfAbsent(ctx, "g", nil, time.Unix(1, 0)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	cfg := DefaultTaskConfig()
	cfg.Enabled = []string{TaskAnalysisQueue}

	sup := suture.NewSimple("test")
	if _, err := Launch(sup, cfg, Deps{Source: gamesource.NewFake(), Store: mem}); err != nil {
		t.Fatalf("launch: %v", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	errCh := sup.ServeBackground(runCtx)

	deadline := time.After(5 * time.Second)
	for {
		e, _ := mem.GetAnalysisEntry(ctx, "g")
		if e.Status == store.AnalysisNotFound {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatalf("entry status = %s, drainer never ran", e.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-errCh
}

func TestLaunchRejectsUnknownTask(t *testing.T) {
	cfg := DefaultTaskConfig()
	cfg.Enabled = []string{"bogus"}
	if _, err := Launch(suture.NewSimple("test"), cfg, Deps{}); err == nil {
		t.Fatal("expected error for unknown task")
	}
}
