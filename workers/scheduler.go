package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler runs periodic background jobs. A job never overlaps with its own
// previous run.
type Scheduler struct {
	sched gocron.Scheduler
	log   *zap.Logger
}

func NewScheduler(log *zap.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{sched: sched, log: log.Named("scheduler")}, nil
}

// Every registers task to run each interval. ctx is handed to every run, so
// cancelling it stops in-flight work at shutdown.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, task func(context.Context) error) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			if err := task(ctx); err != nil {
				s.log.Error("job failed", zap.String("job", name), zap.Error(err))
				return
			}
			s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.Duration("every", interval))
	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
