package configwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
)

// Supervise runs a config watcher until ctx is done. The watcher is restarted
// with backoff when fsnotify fails.
func Supervise(ctx context.Context, path string, apply ApplyFunc, opts ...Option) error {
	spec := supervisor.Spec{
		Name: "config-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return New(path, apply, opts...), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   30 * time.Second,
			MaxRestarts:     5,
			MaxDuration:     time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("config", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start config supervisor: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sup.Stop(stopCtx)
}
