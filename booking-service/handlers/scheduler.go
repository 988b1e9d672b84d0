package handlers

import (
	"context"

	"github.com/draftea/booking-system/shared/logging"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}

// SweepScheduler runs the recovery sweep on a cron schedule. A run that is
// still going when the next one is due causes that next run to be skipped.
type SweepScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
	ctx     context.Context
}

// NewSweepScheduler parses the schedule, accepting five field expressions and
// descriptors such as "@every 5m"
func NewSweepScheduler(spec string, sweeper Sweeper, logger *zap.Logger) (*SweepScheduler, error) {
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid sweep schedule %q", spec)
	}

	adapter := cronLogger{logger: logger.Sugar()}
	s := &SweepScheduler{
		sweeper: sweeper,
		logger:  logger,
		ctx:     context.Background(),
	}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(s.run))

	return s, nil
}

// Start runs the scheduler in the background until Stop; ctx is handed to every sweep
func (s *SweepScheduler) Start(ctx context.Context) {
	s.ctx = logging.WithLogger(ctx, s.logger)
	s.cron.Start()
	s.logger.Info("sweep scheduler started")
}

// Stop stops scheduling and waits for a running sweep to finish
func (s *SweepScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweep scheduler stopped")
}

func (s *SweepScheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	if _, err := s.sweeper.Execute(s.ctx); err != nil {
		s.logger.Error("scheduled sweep failed", zap.Error(err))
	}
}
