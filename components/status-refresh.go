package components

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helpdesk"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/rdbms"
	"github.com/relloyd/deskpipe/stream"
)

// refreshColumns are the columns rewritten for each unresolved ticket, in update order.
var refreshColumns = []string{
	"ticket_produto",
	"ticket_n_do_pedido",
	"ticket_n_do_pedido_bling",
	"tags_ticket",
	"ticket_cpf",
	"status_ticket",
	"status_ticket2",
}

// StatusRefresher re-reads unresolved tickets from the helpdesk and updates their rows in place.
type StatusRefresher struct {
	Log            logger.Logger
	Client         *helpdesk.Client
	Sink           rdbms.Sink
	Table          rdbms.TableID
	ResolvedStatus string
}

type RefreshReport struct {
	Tickets int
	Rows    int64
	Failed  int
}

// Refresh updates every distinct ticket in the table whose status is not the resolved status.
// A failure for one ticket is logged and counted; only sink failures while listing tickets are returned.
func (s *StatusRefresher) Refresh(ctx context.Context) (RefreshReport, error) {
	report := RefreshReport{}
	resolved := s.ResolvedStatus
	if resolved == "" {
		resolved = constants.StatusResolvedDefault
	}
	cols := make([]rdbms.Column, 0, len(refreshColumns)+1)
	for _, c := range append([]string{constants.FieldTicketNumber}, refreshColumns...) {
		cols = append(cols, rdbms.Column{Name: c, Type: rdbms.ColumnTypeString})
	}
	if err := s.Sink.EnsureColumns(ctx, s.Table, cols); err != nil {
		return report, err
	}
	q := fmt.Sprintf("select distinct %[1]v from %[2]v where %[1]v is not null and %[3]v != @resolved",
		rdbms.QuoteIdentifier(constants.FieldTicketNumber), s.Table.Quoted(), rdbms.QuoteIdentifier("status_ticket"))
	rows, err := s.Sink.Query(ctx, q, rdbms.NewParam("resolved", resolved))
	if err != nil {
		return report, errors.Wrap(err, "error listing unresolved tickets")
	}
	for _, r := range rows {
		n, ok := stream.JoinKey(r.GetData(constants.FieldTicketNumber))
		if !ok {
			continue
		}
		report.Tickets++
		affected, err := s.RefreshTicket(ctx, n)
		if err != nil {
			report.Failed++
			s.Log.Warn("error refreshing ticket ", n, ": ", err)
			continue
		}
		report.Rows += affected
		s.Log.Debug("ticket ", n, " refreshed (", affected, " rows)")
	}
	s.Log.Info("refreshed ", report.Tickets-report.Failed, " of ", report.Tickets, " unresolved tickets (", report.Rows, " rows)")
	return report, nil
}

// RefreshTicket fetches ticket n and updates its rows. It returns the number of rows changed.
func (s *StatusRefresher) RefreshTicket(ctx context.Context, n string) (int64, error) {
	body, err := s.Client.Get(ctx, "/"+constants.ResourceTickets+"/"+url.PathEscape(n), nil)
	if err != nil {
		return 0, err
	}
	ticket, ok := body.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected ticket response for %v", n)
	}
	values, err := ticketRefreshValues(ticket)
	if err != nil {
		return 0, err
	}
	params := make([]rdbms.Param, 0, len(refreshColumns)+1)
	sets := ""
	for i, c := range refreshColumns {
		if i > 0 {
			sets += ", "
		}
		sets += fmt.Sprintf("%v = @p%v", rdbms.QuoteIdentifier(c), i)
		params = append(params, rdbms.NewParam(fmt.Sprintf("p%v", i), values[c]))
	}
	params = append(params, rdbms.NewParam("ticket_id", n))
	q := fmt.Sprintf("update %v set %v where %v = @ticket_id", s.Table.Quoted(), sets, rdbms.QuoteIdentifier(constants.FieldTicketNumber))
	return s.Sink.Exec(ctx, q, params...)
}

// ticketRefreshValues picks the refreshed columns out of a ticket detail response as text.
func ticketRefreshValues(ticket map[string]interface{}) (map[string]interface{}, error) {
	custom := stream.FlattenCustomFields("", ticket["customField"], nil)
	flat := stream.Flatten(ticket, ".")
	raw := map[string]interface{}{
		"ticket_produto":           custom.GetData("produto"),
		"ticket_n_do_pedido":       custom.GetData("n_do_pedido"),
		"ticket_n_do_pedido_bling": custom.GetData("n_do_pedido_bling"),
		"tags_ticket":              ticket["tags"],
		"ticket_cpf":               custom.GetData("cpf"),
		"status_ticket":            flat.GetData("status.name"),
		"status_ticket2":           flat.GetData("lastHumanInteraction.propertiesChanges.status"),
	}
	retval := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		t, err := rdbms.CoerceValue(v, rdbms.ColumnTypeString)
		if err != nil {
			return nil, errors.Wrapf(err, "column %v", k)
		}
		retval[k] = t
	}
	return retval, nil
}
