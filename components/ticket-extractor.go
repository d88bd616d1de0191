package components

import (
	"context"
	"time"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helpdesk"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

// TicketCustomFieldKeys are the only ticket custom fields lifted into ticket_<key> columns.
var TicketCustomFieldKeys = []string{
	"codigo_de_rastreio",
	"cpf",
	"data_de_pagamento",
	"email_do_cliente",
	"motivo_de_contatos",
	"n_da_nota_fiscal",
	"n_do_pedido",
	"n_do_pedido_bling",
	"produto",
	"tipo_do_problema",
}

const (
	ticketCustomFieldPrefix  = "ticket_"
	fieldTicketCustom        = "campo_custom_ticket"
	fieldTicketCustomContact = "campo_custom_ticket2"
)

// ticketRenames maps flattened source paths to output columns, in output order.
var ticketRenames = func() *om.OrderedMap {
	m := om.NewOrderedMap()
	m.Set("id", constants.FieldRowId)
	m.Set("number", constants.FieldTicketNumber)
	m.Set("summary", "titulo")
	m.Set("tags", "tags_ticket")
	m.Set("createdAt", "createdAt")
	m.Set("updatedAt", "updatedAt")
	m.Set("status.name", "status_ticket")
	m.Set("channel.name", "channel_ticket")
	m.Set("requester.name", "autor_ticket")
	m.Set("requester.email", "email_ticket")
	m.Set("group.id", "grupo_responsavel_ticket")
	m.Set("lastHumanInteraction.propertiesChanges.status", "status_ticket2")
	m.Set("customField", fieldTicketCustom)
	m.Set("requester.customField", fieldTicketCustomContact)
	return m
}()

func ticketCustomFieldAllowList() map[string]struct{} {
	retval := make(map[string]struct{}, len(TicketCustomFieldKeys))
	for _, k := range TicketCustomFieldKeys {
		retval[k] = struct{}{}
	}
	return retval
}

// TicketExtractor fetches tickets for a set of windows and projects them onto the ticket columns.
type TicketExtractor struct {
	Log      logger.Logger
	Splitter *helpdesk.Splitter
}

// NewTicketExtractor wires an Extractor for the tickets collection into a Splitter.
func NewTicketExtractor(log logger.Logger, client *helpdesk.Client, pageSize int, minWindow time.Duration) *TicketExtractor {
	e := &helpdesk.Extractor{Log: log, Client: client, Resource: constants.ResourceTickets, PageSize: pageSize}
	return &TicketExtractor{
		Log:      log,
		Splitter: &helpdesk.Splitter{Log: log, Fetch: e.Fetch, MinWidth: minWindow},
	}
}

// Extract fetches every window in turn and returns the projected ticket rows.
func (t *TicketExtractor) Extract(ctx context.Context, windows []helpdesk.Window) ([]stream.Record, helpdesk.SplitReport, error) {
	raw := make([]stream.Record, 0)
	total := helpdesk.SplitReport{Skipped: make([]helpdesk.Window, 0)}
	for _, w := range windows {
		recs, report, err := t.Splitter.FetchWindow(ctx, w)
		addReport(&total, report)
		if err != nil {
			return nil, total, err
		}
		raw = append(raw, recs...)
	}
	raw = helpdesk.DistinctRecords(raw)
	t.Log.Info("fetched ", len(raw), " tickets in ", len(windows), " windows (", len(total.Skipped), " skipped)")
	return TransformTickets(raw), total, nil
}

// TransformTickets flattens and renames raw tickets and then left joins the allowed custom fields onto
// each row by uuid. Source paths missing from a ticket become null columns.
func TransformTickets(raw []stream.Record) []stream.Record {
	rows := make([]stream.Record, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, projectTicket(r))
	}
	custom := ExtractTicketCustomFields(rows)
	byUuid := make(map[string]stream.Record, len(custom))
	for _, c := range custom {
		if k, ok := stream.JoinKey(c.GetData(constants.FieldRowId)); ok {
			byUuid[k] = c
		}
	}
	for _, r := range rows {
		k, ok := stream.JoinKey(r.GetData(constants.FieldRowId))
		if !ok {
			continue
		}
		if c, ok := byUuid[k]; ok {
			for col, v := range c.GetDataMap() {
				if col != constants.FieldRowId {
					r.SetData(col, v)
				}
			}
		}
	}
	return rows
}

func projectTicket(r stream.Record) stream.Record {
	flat := stream.Flatten(r.GetDataMap(), ".")
	retval := stream.NewRecord()
	iter := ticketRenames.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval.SetData(kv.Value.(string), flat.GetData(kv.Key.(string)))
	}
	return retval
}

// ExtractTicketCustomFields returns one record per ticket with its uuid plus a ticket_<key> column for
// each custom field in TicketCustomFieldKeys. Other custom fields are dropped.
func ExtractTicketCustomFields(rows []stream.Record) []stream.Record {
	allow := ticketCustomFieldAllowList()
	retval := make([]stream.Record, 0, len(rows))
	for _, r := range rows {
		c := stream.FlattenCustomFields(ticketCustomFieldPrefix, r.GetData(fieldTicketCustom), allow)
		c.SetData(constants.FieldRowId, r.GetData(constants.FieldRowId))
		retval = append(retval, c)
	}
	return retval
}

func addReport(total *helpdesk.SplitReport, r helpdesk.SplitReport) {
	total.Attempts += r.Attempts
	total.Leaves += r.Leaves
	total.Records += r.Records
	total.Skipped = append(total.Skipped, r.Skipped...)
}
