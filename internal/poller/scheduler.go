package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"dayhelper/internal/logging"
)

// Scheduler runs pollers on a cron schedule until its context ends.
type Scheduler struct {
	spec    string
	cron    *cron.Cron
	pollers []Poller
	log     *log.Logger
	now     func() time.Time
	done    chan struct{}
}

// NewScheduler validates spec (standard five-field cron syntax or a
// descriptor such as "@every 1m").
func NewScheduler(spec string, logger *log.Logger, pollers ...Poller) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse poll schedule %q: %w", spec, err)
	}
	cl := cronLogger{l: logger.WithPrefix("cron")}
	c := cron.New(
		cron.WithLocation(time.Local),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{
		spec:    spec,
		cron:    c,
		pollers: pollers,
		log:     logger,
		now:     time.Now,
		done:    make(chan struct{}),
	}, nil
}

// Start ticks every poller once, registers them with cron and returns.
// Cancelling ctx stops the schedule; Done closes once running jobs end.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, p := range s.pollers {
		s.run(p)
		if _, err := s.cron.AddFunc(s.spec, func() { s.run(p) }); err != nil {
			return fmt.Errorf("schedule %s: %w", p.Name(), err)
		}
	}
	s.cron.Start()
	s.log.Info("pollers started", "schedule", s.spec, "count", len(s.pollers))

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.log.Info("pollers stopped")
		close(s.done)
	}()
	return nil
}

func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) run(p Poller) {
	n := p.Tick(s.now())
	s.log.Debug("poll", "poller", p.Name(), "notifications", n)
}

// cronLogger adapts charmbracelet/log to cron.Logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
