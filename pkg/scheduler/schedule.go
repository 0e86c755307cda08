package scheduler

import "time"

// Schedule computes a job's next run time.
type Schedule interface {
	// Next returns the run time following after.
	Next(after time.Time) time.Time
	// Recurring reports whether the job should be rescheduled after it runs.
	Recurring() bool
}

// Once runs a job exactly once, at runAt.
func Once(runAt time.Time) Schedule {
	return onceSchedule{runAt: runAt}
}

type onceSchedule struct{ runAt time.Time }

func (s onceSchedule) Next(time.Time) time.Time { return s.runAt }
func (s onceSchedule) Recurring() bool { return false }

// Interval runs a job every d, measured from its last claimed run.
func Interval(d time.Duration) Schedule {
	return intervalSchedule{d: d}
}

type intervalSchedule struct{ d time.Duration }

func (s intervalSchedule) Next(after time.Time) time.Time { return after.Add(s.d) }
func (s intervalSchedule) Recurring() bool { return true }

// Daily runs a job once per day at hour:minute UTC.
func Daily(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

// ParseDailyTime parses an "HH:MM" string as used by config.AutonomyConfig.DailyReportTime.
func ParseDailyTime(hhmm string) (Schedule, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil, err
	}
	return Daily(t.Hour(), t.Minute()), nil
}

type dailySchedule struct{ hour, minute int }

func (s dailySchedule) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) Recurring() bool { return true }

// Never is a sentinel next-run time used to retire a job without a
// delete operation on store.SchedulerStore: a one-off run, or a
// cancelled recurring task, is released with NextRunAt pinned here so it
// is never claimed again.
var Never = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
