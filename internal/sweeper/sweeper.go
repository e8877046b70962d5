// Package sweeper periodically reclaims lapsed seat holds.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Expirer is satisfied by *reservation.Service.
type Expirer interface {
	Expire(ctx context.Context) (int, error)
}

type Sweeper struct {
	sched    gocron.Scheduler
	expirer  Expirer
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func New(expirer Expirer, interval time.Duration, log *slog.Logger) (*Sweeper, error) {
	const op = "sweeper.New"

	if interval <= 0 {
		interval = 30 * time.Second
	}

	if log == nil {
		log = slog.Default()
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s := &Sweeper{
		sched:    sched,
		expirer:  expirer,
		log:      log,
		interval: interval,
		timeout:  interval,
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.sweep),
		gocron.WithName("expire-holds"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s, nil
}

// Run starts the schedule and blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sched.Start()
	s.log.Info("hold sweeper started", slog.Duration("interval", s.interval))

	<-ctx.Done()

	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("sweeper.Run:%w", err)
	}

	return nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.Expire(ctx)
	if err != nil {
		s.log.Error("hold sweep failed", slog.Any("error", err))
		return
	}

	if n > 0 {
		s.log.Info("expired holds reclaimed", slog.Int("count", n))
	}
}
