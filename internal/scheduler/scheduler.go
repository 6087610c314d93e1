package scheduler

import (
	"context"
	"fmt"
	"time"

	"FinSignal/internal/usecase"
	applogger "FinSignal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// CycleRunner is satisfied by *usecase.SignalGenerator.
type CycleRunner interface {
	RunCycle(ctx context.Context, symbols []string, at time.Time) (*usecase.CycleReport, error)
}

// Scheduler triggers generation cycles on a cron spec. A tick that fires
// while the previous cycle is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	cycles  CycleRunner
	symbols []string
	logger  *applogger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

func NewScheduler(cycles CycleRunner, symbols []string, logger *applogger.Logger) *Scheduler {
	if logger == nil {
		logger = applogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{l: logger}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		cycles:  cycles,
		symbols: symbols,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Register adds the generation job. An empty spec registers nothing.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register generate task %q: %w", spec, err)
	}
	s.logger.Info("generate task registered", applogger.String("cron", spec), applogger.Int("symbols", len(s.symbols)))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop cancels a running cycle between symbols and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes one cycle at the current minute.
func (s *Scheduler) RunNow() {
	at := s.now().UTC().Truncate(time.Minute)
	rep, err := s.cycles.RunCycle(s.ctx, s.symbols, at)
	if err != nil {
		s.logger.Error("scheduled cycle failed", applogger.Time("at", at), applogger.Error(err))
		return
	}
	s.logger.Info("scheduled cycle done",
		applogger.Time("at", at),
		applogger.Int("signals", len(rep.Signals)),
		applogger.Int("failures", len(rep.Failures)),
	)
}

// cronLogger adapts applogger to cron.Logger.
type cronLogger struct{ l *applogger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kv(keysAndValues), applogger.Error(err))...)
}

func kv(pairs []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, applogger.Any(fmt.Sprint(pairs[i]), pairs[i+1]))
	}
	return out
}
