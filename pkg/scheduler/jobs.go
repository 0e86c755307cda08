package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/perpctl/tradeagent/pkg/autonomy"
)

// AutonomyScanJobName is the scheduler job name for the autonomy scan
// tick. Exported so chat/API code can look up its status.
const AutonomyScanJobName = "autonomy_scan"

// AutonomyDailyReportJobName is the scheduler job name for the autonomy
// loop's daily report.
const AutonomyDailyReportJobName = "autonomy_daily_report"

// NewAutonomyScanJob wires the autonomy loop's scan tick into
// an interval job. The handler's returned cadence (ScanResult.
// NextIntervalSecs, adapted for position caps, budget and volatility)
// overrides the schedule's own next-run computation every time, so the
// job's reschedule interval drifts with market conditions instead of
// staying fixed at baseIntervalSeconds.
func NewAutonomyScanJob(engine *autonomy.Engine, baseIntervalSeconds int) *Job {
	return &Job{
		Name: AutonomyScanJobName,
		Schedule: Interval(time.Duration(baseIntervalSeconds) * time.Second),
		Handler: func(ctx context.Context) (*HandlerOutcome, error) {
			result, err := engine.Scan(ctx)
			if err != nil {
				return nil, err
			}
			next := time.Now().UTC().Add(time.Duration(result.NextIntervalSecs) * time.Second)
			return &HandlerOutcome{NextRunOverride: next}, nil
		},
	}
}

// NewAutonomyDailyReportJob wires the autonomy loop's daily report into a
// daily job at the configured UTC wall-clock time
// (config.AutonomyConfig.DailyReportTime, "HH:MM").
func NewAutonomyDailyReportJob(engine *autonomy.Engine, dailyReportTime string) (*Job, error) {
	sched, err := ParseDailyTime(dailyReportTime)
	if err != nil {
		return nil, fmt.Errorf("parsing daily_report_time %q: %w", dailyReportTime, err)
	}
	return &Job{
		Name: AutonomyDailyReportJobName,
		Schedule: sched,
		Handler: func(ctx context.Context) (*HandlerOutcome, error) {
			_, err := engine.DailyReport(ctx)
			return nil, err
		},
	}, nil
}
