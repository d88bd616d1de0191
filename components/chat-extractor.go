package components

import (
	"context"
	"time"

	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helpdesk"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

const chatCustomFieldPrefix = "cf_chat_"

// ChatExtractor fetches chats for a set of windows. Each chat has its customFields lifted into
// cf_chat_<name> columns and is then flattened with sanitised column names.
type ChatExtractor struct {
	Log      logger.Logger
	Splitter *helpdesk.Splitter
}

func NewChatExtractor(log logger.Logger, client *helpdesk.Client, pageSize int, minWindow time.Duration) *ChatExtractor {
	e := &helpdesk.Extractor{Log: log, Client: client, Resource: constants.ResourceChats, PageSize: pageSize}
	return &ChatExtractor{
		Log:      log,
		Splitter: &helpdesk.Splitter{Log: log, Fetch: e.Fetch, MinWidth: minWindow},
	}
}

func (c *ChatExtractor) Extract(ctx context.Context, windows []helpdesk.Window) ([]stream.Record, helpdesk.SplitReport, error) {
	raw := make([]stream.Record, 0)
	total := helpdesk.SplitReport{Skipped: make([]helpdesk.Window, 0)}
	for _, w := range windows {
		recs, report, err := c.Splitter.FetchWindow(ctx, w)
		addReport(&total, report)
		if err != nil {
			return nil, total, err
		}
		raw = append(raw, recs...)
	}
	raw = helpdesk.DistinctRecords(raw)
	retval := make([]stream.Record, 0, len(raw))
	for _, r := range raw {
		retval = append(retval, TransformChat(r))
	}
	c.Log.Info("fetched ", len(retval), " chats in ", len(windows), " windows (", len(total.Skipped), " skipped)")
	return retval, total, nil
}

// TransformChat flattens one raw chat listing record.
func TransformChat(raw stream.Record) stream.Record {
	retval := stream.Flatten(raw.GetDataMap(), ".")
	stream.FlattenNamedCustomFields(chatCustomFieldPrefix, raw.GetData("customFields")).CopyTo(retval)
	retval.SanitiseColumns()
	return retval
}

// ChatNumbers returns the number column of each chat in order, skipping rows without one.
func ChatNumbers(chats []stream.Record) []interface{} {
	retval := make([]interface{}, 0, len(chats))
	for _, c := range chats {
		if v := c.GetData(constants.FieldChatNumber); v != nil {
			retval = append(retval, v)
		}
	}
	return retval
}
