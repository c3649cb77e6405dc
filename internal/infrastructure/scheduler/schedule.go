package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// IntervalSchedule runs a job every Interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule. A non-positive interval is treated as one minute.
func Every(interval time.Duration) IntervalSchedule {
	if interval <= 0 {
		interval = time.Minute
	}
	return IntervalSchedule{Interval: interval}
}

// Next returns t plus the interval.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// CronSchedule runs a job on a standard five-field cron expression.
type CronSchedule struct {
	spec     string
	schedule cron.Schedule
}

// Cron parses a standard cron expression or descriptor such as "@hourly".
func Cron(spec string) (CronSchedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return CronSchedule{}, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return CronSchedule{spec: spec, schedule: sched}, nil
}

// Next returns the next activation after t.
func (s CronSchedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s CronSchedule) String() string {
	return s.spec
}
