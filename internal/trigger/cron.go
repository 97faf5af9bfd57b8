package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// CronSource fires on a schedule, for rotating the wallpaper even without
// lock events. Either Every or Cron must be set; Cron wins when both are.
type CronSource struct {
	Every time.Duration
	Cron  string // standard 5-field cron expression
}

func (s CronSource) Run(ctx context.Context, fire Handler) error {
	var def gocron.JobDefinition
	switch {
	case s.Cron != "":
		def = gocron.CronJob(s.Cron, false)
	case s.Every > 0:
		def = gocron.DurationJob(s.Every)
	default:
		return fmt.Errorf("cron source needs an interval or a cron expression")
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	if _, err := sched.NewJob(def, gocron.NewTask(func() { fire() })); err != nil {
		return fmt.Errorf("schedule rotation job: %w", err)
	}

	sched.Start()
	<-ctx.Done()
	return sched.Shutdown()
}
