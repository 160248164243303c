package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// DefaultSweepSchedule expires idle browser sessions.
const DefaultSweepSchedule = "@every 1m"

// CloseOuter runs the end-of-day report.
type CloseOuter interface {
	CloseOut(ctx context.Context) (models.DailyReport, error)
}

// Sweeper drops idle sessions.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reporter CloseOuter
	sweeper  Sweeper
	logger   *zap.Logger
}

// NewScheduler creates a scheduler whose jobs run in loc.
func NewScheduler(loc *time.Location, reporter CloseOuter, sweeper Sweeper, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reporter: reporter,
		sweeper:  sweeper,
		logger:   logger,
	}
}

// Start registers the jobs and starts the scheduler. reportSchedule is a
// standard five-field cron expression.
func (s *Scheduler) Start(reportSchedule string) error {
	s.logger.Info("starting scheduler", zap.String("report_schedule", reportSchedule))

	if s.reporter != nil {
		if _, err := s.cron.AddFunc(reportSchedule, s.closeOut); err != nil {
			return fmt.Errorf("schedule daily close-out: %w", err)
		}
	}
	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(DefaultSweepSchedule, s.sweep); err != nil {
			return fmt.Errorf("schedule session sweep: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) closeOut() {
	s.logger.Info("running daily close-out")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.reporter.CloseOut(ctx)
	if err != nil {
		s.logger.Error("daily close-out finished with errors", zap.String("date", report.Date), zap.Error(err))
		return
	}
	s.logger.Info("daily close-out completed",
		zap.String("date", report.Date),
		zap.Float64("total_sales", report.TotalSales),
		zap.Float64("net_profit", report.NetProfit))
}

func (s *Scheduler) sweep() {
	if n := s.sweeper.Sweep(time.Now()); n > 0 {
		s.logger.Info("expired idle sessions", zap.Int("count", n))
	}
}
