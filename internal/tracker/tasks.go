package tracker

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"lobbywatch/internal/config"
	"lobbywatch/internal/gamesource"

	"github.com/thejerf/suture/v4"
)

const (
	TaskDiscovery       = "discovery"
	TaskLobbySweep      = "lobby_sweep"
	TaskAnalysisQueue   = "analysis_queue"
	TaskStalledAnalysis = "stalled_analysis"
	TaskTrackedPlayers  = "tracked_players"
)

// DefaultTasks run unless disabled; ExtraTasks run only when requested.
var (
	DefaultTasks = []string{TaskDiscovery, TaskLobbySweep, TaskAnalysisQueue, TaskStalledAnalysis}
	ExtraTasks   = []string{TaskTrackedPlayers}
)

// TaskConfig selects the tasks to launch and how each is rescheduled.
type TaskConfig struct {
	Enabled        []string
	Settings       map[string]TaskSettings
	QuietThreshold time.Duration
	StallThreshold time.Duration
	PlayerRecheck  time.Duration
}

func DefaultTaskConfig() TaskConfig {
	backoff := DefaultBackoff()
	return TaskConfig{
		Enabled: append([]string(nil), DefaultTasks...),
		Settings: map[string]TaskSettings{
			TaskDiscovery:       {IdleDelay: 0, Backoff: backoff},
			TaskLobbySweep:      {IdleDelay: 5 * time.Minute, Backoff: backoff},
			TaskAnalysisQueue:   {IdleDelay: 5 * time.Second, Backoff: backoff},
			TaskStalledAnalysis: {IdleDelay: time.Minute, Backoff: backoff},
			TaskTrackedPlayers:  {IdleDelay: time.Minute, Backoff: backoff},
		},
		QuietThreshold: 15 * time.Minute,
		StallThreshold: 30 * time.Minute,
		PlayerRecheck:  30 * time.Minute,
	}
}

// TaskConfigFromTracker applies DISABLE_TASKS, EXTRA_TASKS and thresholds on
// top of the defaults. Unknown task names are rejected.
func TaskConfigFromTracker(cfg config.TrackerConfig) (TaskConfig, error) {
	out := DefaultTaskConfig()
	disabled := map[string]bool{}
	for _, name := range cfg.DisableTasks {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !knownTask(name) {
			return TaskConfig{}, fmt.Errorf("DISABLE_TASKS: unknown task %q", name)
		}
		disabled[name] = true
	}
	enabled := make([]string, 0, len(DefaultTasks)+len(ExtraTasks))
	for _, name := range DefaultTasks {
		if !disabled[name] {
			enabled = append(enabled, name)
		}
	}
	for _, name := range cfg.ExtraTasks {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !knownTask(name) {
			return TaskConfig{}, fmt.Errorf("EXTRA_TASKS: unknown task %q", name)
		}
		if !disabled[name] && !slices.Contains(enabled, name) {
			enabled = append(enabled, name)
		}
	}
	out.Enabled = enabled
	if cfg.QuietThresholdMins > 0 {
		out.QuietThreshold = time.Duration(cfg.QuietThresholdMins) * time.Minute
	}
	if cfg.StallThresholdMins > 0 {
		out.StallThreshold = time.Duration(cfg.StallThresholdMins) * time.Minute
	}
	if cfg.TrackedPlayerRecheckMin > 0 {
		out.PlayerRecheck = time.Duration(cfg.TrackedPlayerRecheckMin) * time.Minute
	}
	return out, nil
}

// Deps are the collaborators shared by every task.
type Deps struct {
	Source gamesource.Source
	Store  Gateway
}

// Services builds one supervised service per enabled task, in order.
func Services(cfg TaskConfig, deps Deps) ([]suture.Service, error) {
	detector := &Detector{Source: deps.Source}
	out := make([]suture.Service, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		var action func(context.Context) error
		switch name {
		case TaskDiscovery:
			action = NewDiscovery(deps.Source, deps.Store).Run
		case TaskLobbySweep:
			action = NewLobbySweep(deps.Store, detector, cfg.QuietThreshold).Run
		case TaskAnalysisQueue:
			action = NewQueueDrainer(deps.Store, detector).Run
		case TaskStalledAnalysis:
			action = NewStalledSweep(deps.Store, cfg.StallThreshold).Run
		case TaskTrackedPlayers:
			action = NewPlayerCrawl(deps.Source, deps.Store, cfg.PlayerRecheck).Run
		default:
			return nil, fmt.Errorf("unknown task %q", name)
		}
		settings, ok := cfg.Settings[name]
		if !ok {
			settings = TaskSettings{Backoff: DefaultBackoff()}
		}
		out = append(out, &taskService{name: name, settings: settings, action: action})
	}
	return out, nil
}

// Launch adds the enabled tasks to sup. Each runs independently; one task
// failing or panicking never stops another.
func Launch(sup *suture.Supervisor, cfg TaskConfig, deps Deps) ([]suture.ServiceToken, error) {
	services, err := Services(cfg, deps)
	if err != nil {
		return nil, err
	}
	tokens := make([]suture.ServiceToken, 0, len(services))
	for _, svc := range services {
		tokens = append(tokens, sup.Add(svc))
	}
	return tokens, nil
}

func knownTask(name string) bool {
	return slices.Contains(DefaultTasks, name) || slices.Contains(ExtraTasks, name)
}
