package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// TaskSettings controls how KeepAlive reschedules an action.
type TaskSettings struct {
	IdleDelay time.Duration
	Backoff   Backoff
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// KeepAlive runs action until ctx ends. A success resets the failure streak
// and waits IdleDelay; a failure is logged and waits the backoff for the
// current streak instead. It returns ctx.Err().
func KeepAlive(ctx context.Context, name string, action func(context.Context) error, s TaskSettings) error {
	return keepAlive(ctx, name, action, s, sleepContext)
}

func keepAlive(ctx context.Context, name string, action func(context.Context) error, s TaskSettings, sleep sleepFunc) error {
	backoff := s.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := action(ctx)
		if err == nil {
			failures = 0
			taskRuns.WithLabelValues(name, "ok").Inc()
			taskBackoff.WithLabelValues(name).Set(0)
			if err := sleep(ctx, s.IdleDelay); err != nil {
				return err
			}
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		wait := backoff.Next(failures)
		taskRuns.WithLabelValues(name, "error").Inc()
		taskBackoff.WithLabelValues(name).Set(wait.Seconds())
		log.Error().Err(err).
			Str("task", name).
			Int("failures", failures).
			Int64("wait_ms", wait.Milliseconds()).
			Msg("task failed")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		failures++
	}
}

// taskService adapts a KeepAlive loop to suture.Service. Panics inside the
// action are recovered by the supervisor and the service is restarted.
type taskService struct {
	name     string
	settings TaskSettings
	action   func(context.Context) error
}

func (t *taskService) Serve(ctx context.Context) error {
	log.Info().Str("task", t.name).Msg("task started")
	err := KeepAlive(ctx, t.name, t.action, t.settings)
	log.Info().Str("task", t.name).Msg("task stopped")
	return err
}

func (t *taskService) String() string {
	return t.name
}
