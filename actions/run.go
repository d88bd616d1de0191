package actions

import (
	"context"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/components"
	"github.com/relloyd/deskpipe/config"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helpdesk"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
	"github.com/rs/xid"
)

type RunConfig struct {
	Job              *config.JobConfig `errorTxt:"job config" mandatory:"yes"`
	LogLevel         string
	StackDumpOnPanic bool
	Env              *Env
}

// RunReport summarises one run of the pipeline.
type RunReport struct {
	RunId          string
	Windows        int
	Tickets        int
	Chats          int
	ChatFailures   int
	Merged         int
	Filtered       int
	New            int
	Loaded         int
	SkippedWindows []helpdesk.Window
	ArchiveKey     string
}

// RunPipeline extracts tickets and chats for the lookback window, merges them on the ticket number,
// drops rows already in the target table and appends the rest.
func RunPipeline(ctx context.Context, cfg *RunConfig) (report RunReport, err error) {
	if err = validate(cfg, cfg.Job); err != nil {
		return
	}
	job := cfg.Job
	env := cfg.Env.orDefault()
	report.RunId = xid.New().String()
	log := env.logger(cfg.LogLevel, cfg.StackDumpOnPanic).WithField("runId", report.RunId)
	table, err := job.TableID()
	if err != nil {
		return
	}
	now := env.Now()
	windows := helpdesk.SplitWindows(now.Add(-job.Window.Lookback), now, job.Window.Step)
	report.Windows = len(windows)
	log.Info("run starting for ", helpdesk.LookbackWindow(now, job.Window.Lookback), " in ", len(windows), " windows")
	client := newHelpdeskClient(log, job)
	// Tickets.
	tx := components.NewTicketExtractor(log, client, job.Helpdesk.PageSize, job.Window.MinWidth)
	tx.Splitter.MaxDepth = job.Window.MaxSplitDepth
	tickets, ticketReport, err := tx.Extract(ctx, windows)
	if err != nil {
		return report, errors.Wrap(err, "error extracting tickets")
	}
	report.Tickets = len(tickets)
	report.SkippedWindows = append(report.SkippedWindows, ticketReport.Skipped...)
	// Chats.
	chats, skipped, failures, err := extractChats(ctx, log, client, job, windows)
	if err != nil {
		return report, errors.Wrap(err, "error extracting chats")
	}
	report.Chats = len(chats)
	report.ChatFailures = failures
	report.SkippedWindows = append(report.SkippedWindows, skipped...)
	// Reconcile.
	rows := components.Merge(chats, tickets, components.DefaultMergeConfig())
	report.Merged = len(rows)
	if job.Filter != "" {
		f, err := components.NewRowFilter(log, job.Filter)
		if err != nil {
			return report, err
		}
		if rows, err = f.Filter(rows); err != nil {
			return report, err
		}
	}
	report.Filtered = len(rows)
	// Sink.
	sink, err := env.OpenSink(ctx, log, job.Sink.Dsn)
	if err != nil {
		return report, errors.Wrap(err, "error opening sink")
	}
	defer sink.Close()
	d := &components.Dedup{Log: log, Sink: sink, Table: table, Policy: job.DedupPolicy}
	if rows, err = d.Filter(ctx, rows); err != nil {
		return report, errors.Wrap(err, "error removing existing rows")
	}
	report.New = len(rows)
	if job.Archive.Url != "" {
		if report.ArchiveKey, err = archiveRows(ctx, log, env, job, report.RunId, rows); err != nil {
			return report, err
		}
	}
	loader := components.NewLoader(log, sink, table)
	loader.Now = env.Now
	if report.Loaded, err = loader.Load(ctx, rows); err != nil {
		return report, err
	}
	if len(report.SkippedWindows) > 0 {
		log.Warn(len(report.SkippedWindows), " windows were skipped: ", report.SkippedWindows)
	}
	log.Info("run complete: ", report.Tickets, " tickets, ", report.Chats, " chats, ", report.Merged, " merged, ",
		report.New, " new, ", report.Loaded, " loaded")
	return report, nil
}

// extractChats fetches chat rows in the configured mode. In enrich mode every listed chat is rebuilt
// from its detail and events. In bulk mode the listing is kept and only the ticket number is resolved.
func extractChats(ctx context.Context, log logger.Logger, client *helpdesk.Client, job *config.JobConfig, windows []helpdesk.Window) (chats []stream.Record, skipped []helpdesk.Window, failures int, err error) {
	cx := components.NewChatExtractor(log, client, job.Helpdesk.PageSize, job.Window.MinWidth)
	cx.Splitter.MaxDepth = job.Window.MaxSplitDepth
	listed, report, err := cx.Extract(ctx, windows)
	if err != nil {
		return nil, nil, 0, err
	}
	switch job.ChatMode {
	case constants.ChatModeBulk:
		resolver := &components.TicketResolver{Log: log, Client: client}
		failures = resolver.ResolveChats(ctx, listed)
		chats = listed
	default:
		chats = components.NewChatEnricher(log, client).Enrich(ctx, components.ChatNumbers(listed))
		for _, c := range chats {
			if components.ChatFailed(c) {
				failures++
			}
		}
	}
	return chats, report.Skipped, failures, nil
}

func archiveRows(ctx context.Context, log logger.Logger, env *Env, job *config.JobConfig, runId string, rows []stream.Record) (string, error) {
	bucket, err := job.ArchiveBucket()
	if err != nil {
		return "", err
	}
	client, err := env.OpenArchive(bucket)
	if err != nil {
		return "", errors.Wrapf(err, "error opening archive %v", bucket)
	}
	a := components.NewArchiveWriter(log, client)
	a.Now = env.Now
	return a.Write(ctx, runId, rows)
}

func newHelpdeskClient(log logger.Logger, job *config.JobConfig) *helpdesk.Client {
	return helpdesk.NewClient(log, helpdesk.ClientConfig{
		BaseUrl:     job.Helpdesk.BaseUrl,
		ApiKey:      job.Helpdesk.ApiKey,
		AgentEmail:  job.Helpdesk.AgentEmail,
		Timeout:     job.Helpdesk.Timeout,
		MaxRetries:  job.Helpdesk.MaxRetries,
		BackoffBase: job.Helpdesk.BackoffBase,
	})
}
