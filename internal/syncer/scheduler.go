package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule is how often a device syncs.
const DefaultSchedule = "@every 2m"

// syncTimeout bounds one scheduled sync cycle.
const syncTimeout = 2 * time.Minute

// Scheduler runs Client.Sync on a cron schedule. A cycle that is still
// running when the next one is due makes the next one a no-op.
type Scheduler struct {
	cron   *cron.Cron
	client *Client
	log    zerolog.Logger
	entry  cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler that syncs client on spec. An empty spec
// means DefaultSchedule.
func NewScheduler(client *Client, spec string, log zerolog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		client: client,
		log:    log,
	}

	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return nil, fmt.Errorf("schedule sync %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start runs one sync right away and then follows the schedule. Cycles stop
// when ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	job := s.cron.Entry(s.entry).WrappedJob
	s.cron.Start()
	go job.Run()
	s.log.Info().Time("next_run", s.cron.Entry(s.entry).Next).Msg("Sync scheduler started")
}

// Stop prevents new cycles and waits for a running one to end, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	if s.ctx == nil || s.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, syncTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.client.Sync(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Scheduled sync failed")
		return
	}
	s.log.Info().
		Str("outcome", string(res.Outcome)).
		Int64("version", res.Version).
		Dur("duration", time.Since(start)).
		Msg("Scheduled sync finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
