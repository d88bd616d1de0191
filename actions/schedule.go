package actions

import (
	"context"
	"fmt"

	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helper"
	"github.com/relloyd/deskpipe/logger"
	"github.com/robfig/cron/v3"
)

type ScheduleConfig struct {
	Spec    string                          `errorTxt:"cron schedule" mandatory:"yes"`
	Log     logger.Logger                   `errorTxt:"logger" mandatory:"yes"`
	RunFunc func(ctx context.Context) error `errorTxt:"run function" mandatory:"yes"`
}

// cronLogger sends cron's own messages to our logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: ", msg, " ", keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: ", msg, ": ", err, " ", keysAndValues)
}

// NewScheduler returns a cron scheduler in UTC-3 that calls cfg.RunFunc on cfg.Spec.
// A run that is still going when the next one is due causes that tick to be skipped.
func NewScheduler(ctx context.Context, cfg *ScheduleConfig) (*cron.Cron, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	cl := cronLogger{log: cfg.Log}
	c := cron.New(cron.WithLocation(constants.BRT), cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))
	_, err := c.AddFunc(cfg.Spec, func() {
		cfg.Log.Info("scheduled run starting")
		if err := cfg.RunFunc(ctx); err != nil {
			cfg.Log.Error("scheduled run failed: ", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", cfg.Spec, err)
	}
	return c, nil
}

// RunSchedule blocks until ctx is done, running the job on its schedule.
// The run in flight, if any, is allowed to finish before returning.
func RunSchedule(ctx context.Context, cfg *ScheduleConfig) error {
	c, err := NewScheduler(ctx, cfg)
	if err != nil {
		return err
	}
	c.Start()
	cfg.Log.Info("scheduler started with ", cfg.Spec, " (", constants.BRT, ")")
	<-ctx.Done()
	<-c.Stop().Done()
	cfg.Log.Info("scheduler stopped")
	return nil
}
