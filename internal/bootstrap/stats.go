package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// NewStatsScheduler runs every recorder on interval: connection pool gauges
// and the issuer breaker state. Nil recorders are skipped. The caller starts
// and shuts down the scheduler.
func NewStatsScheduler(interval time.Duration, clock clockwork.Clock, logger *slog.Logger, recorders ...func()) (gocron.Scheduler, error) {
	opts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	var active []func()
	for _, r := range recorders {
		if r != nil {
			active = append(active, r)
		}
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			for _, record := range active {
				record()
			}
		}),
		gocron.WithName("record-stats"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithPanic(func(_ uuid.UUID, jobName string, recovered any) {
				logger.Error("stats job panicked", "job", jobName, "panic", recovered)
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule stats job: %w", err)
	}
	return sched, nil
}
