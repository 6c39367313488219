// Package jobs runs the periodic spreadsheet exports.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"appstock/backend/internal/domain"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const exportTimeout = 2 * time.Minute

type Exports interface {
	ExportSalesWorkbook(ctx context.Context) (domain.ExportResult, error)
	ExportInventoryWorkbook(ctx context.Context) (domain.ExportResult, error)
}

type Scheduler struct {
	sched   *cron.Cron
	exports Exports
}

// NewScheduler registers the export job on schedule, a cron expression with
// optional seconds or a descriptor such as "@daily".
func NewScheduler(schedule string, exports Exports) (*Scheduler, error) {
	s := &Scheduler{
		sched:   cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		exports: exports,
	}
	if _, err := s.sched.AddFunc(schedule, s.runScheduled); err != nil {
		return nil, fmt.Errorf("export schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	zap.S().Infof("export job scheduled, next run at %s", s.Next().Format(time.RFC3339))
}

// Stop halts the scheduler and waits for a running export to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.sched.Stop().Done():
	case <-ctx.Done():
		zap.S().Warn("export job still running at shutdown")
	}
}

func (s *Scheduler) Next() time.Time {
	entries := s.sched.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()
	if err := s.RunExports(ctx); err != nil {
		zap.S().Errorf("scheduled export failed: %s", err.Error())
	}
}

// RunExports writes the sales and inventory workbooks. Both are attempted
// even when the first fails.
func (s *Scheduler) RunExports(ctx context.Context) error {
	var errs []error
	if res, err := s.exports.ExportSalesWorkbook(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sales workbook: %w", err))
	} else {
		zap.S().Infof("scheduled sales export written to %s", res.Path)
	}
	if res, err := s.exports.ExportInventoryWorkbook(ctx); err != nil {
		errs = append(errs, fmt.Errorf("inventory workbook: %w", err))
	} else {
		zap.S().Infof("scheduled inventory export written to %s", res.Path)
	}
	return errors.Join(errs...)
}
