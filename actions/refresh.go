package actions

import (
	"context"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/components"
	"github.com/relloyd/deskpipe/config"
	"github.com/rs/xid"
)

type RefreshConfig struct {
	Job              *config.JobConfig `errorTxt:"job config" mandatory:"yes"`
	LogLevel         string
	StackDumpOnPanic bool
	Env              *Env
}

// RunRefresh re-reads every unresolved ticket in the target table and updates its rows.
func RunRefresh(ctx context.Context, cfg *RefreshConfig) (components.RefreshReport, error) {
	if err := validate(cfg, cfg.Job); err != nil {
		return components.RefreshReport{}, err
	}
	job := cfg.Job
	env := cfg.Env.orDefault()
	log := env.logger(cfg.LogLevel, cfg.StackDumpOnPanic).WithField("runId", xid.New().String())
	table, err := job.TableID()
	if err != nil {
		return components.RefreshReport{}, err
	}
	sink, err := env.OpenSink(ctx, log, job.Sink.Dsn)
	if err != nil {
		return components.RefreshReport{}, errors.Wrap(err, "error opening sink")
	}
	defer sink.Close()
	if exists, err := sink.TableExists(ctx, table); err != nil {
		return components.RefreshReport{}, err
	} else if !exists {
		log.Info("table ", table, " does not exist; nothing to refresh")
		return components.RefreshReport{}, nil
	}
	r := &components.StatusRefresher{
		Log:            log,
		Client:         newHelpdeskClient(log, job),
		Sink:           sink,
		Table:          table,
		ResolvedStatus: job.ResolvedStatus,
	}
	return r.Refresh(ctx)
}
