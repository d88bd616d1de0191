package components

import (
	"context"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/rdbms"
	"github.com/relloyd/deskpipe/rdbms/mocks"
	"github.com/relloyd/deskpipe/stream"
)

func TestStatusRefresher_Refresh(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	srv, client := newFakeHelpdesk(t)
	defer srv.Close()
	ticket := rawTicket("t-1", 101, []interface{}{
		map[string]interface{}{"key": "produto", "value": "Mesa"},
		map[string]interface{}{"key": "cpf", "value": 123},
	}).GetDataMap()
	ticket["status"] = map[string]interface{}{"name": constants.StatusResolvedDefault}
	srv.Tickets = []map[string]interface{}{ticket}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := mocks.NewMockSink(ctrl)
	ctx := context.Background()
	sink.EXPECT().EnsureColumns(ctx, testTable, gomock.Any()).Return(nil)
	sink.EXPECT().
		Query(ctx, `select distinct "n_ticket" from "proj"."lake"."sac" where "n_ticket" is not null and "status_ticket" != @resolved`,
			rdbms.NewParam("resolved", constants.StatusResolvedDefault)).
		Return([]stream.Record{
			stream.NewRecordFromMap(map[string]interface{}{constants.FieldTicketNumber: "101"}),
			stream.NewRecordFromMap(map[string]interface{}{constants.FieldTicketNumber: "404"}),
		}, nil)
	var params []rdbms.Param
	sink.EXPECT().
		Exec(ctx, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sql string, p ...rdbms.Param) (int64, error) {
			params = p
			return 2, nil
		})

	s := &StatusRefresher{Log: log, Client: client, Sink: sink, Table: testTable}
	report, err := s.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Tickets != 2 || report.Failed != 1 || report.Rows != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	values := make(map[string]interface{})
	for _, p := range params {
		values[p.Name] = p.Value
	}
	for i, c := range refreshColumns {
		expected := map[string]interface{}{
			"ticket_produto": "Mesa",
			"ticket_cpf":     "123",
			"tags_ticket":    `["entrega"]`,
			"status_ticket":  constants.StatusResolvedDefault,
			"status_ticket2": "Pendente",
		}
		if v, ok := expected[c]; ok && values[fmt.Sprintf("p%v", i)] != v {
			t.Fatalf("expected %v = %v; got %#v", c, v, values[fmt.Sprintf("p%v", i)])
		}
	}
	if values["ticket_id"] != "101" {
		t.Fatalf("unexpected ticket id param %v", values["ticket_id"])
	}
}

func TestTicketRefreshValues_MissingFieldsAreNull(t *testing.T) {
	got, err := ticketRefreshValues(map[string]interface{}{"number": 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range refreshColumns {
		if v, ok := got[c]; !ok || v != nil {
			t.Fatalf("expected null %v; got %#v", c, v)
		}
	}
}
