package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/rdbms"
	"github.com/relloyd/deskpipe/rdbms/mocks"
	"github.com/relloyd/deskpipe/stream"
)

func TestLoader_CreatesTableAndAppends(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := mocks.NewMockSink(ctrl)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	var loaded []stream.Record
	gomock.InOrder(
		sink.EXPECT().TableExists(ctx, testTable).Return(false, nil),
		sink.EXPECT().CreateTable(ctx, testTable, SeedColumns).Return(nil),
		sink.EXPECT().LoadAppend(ctx, testTable, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ rdbms.TableID, recs []stream.Record) error {
				loaded = recs
				return nil
			}),
	)
	ids := 0
	l := NewLoader(log, sink, testTable)
	l.Now = func() time.Time { return now }
	l.NewId = func() string { ids++; return fmt.Sprintf("row-%v", ids) }
	in := stream.NewRecordFromMap(map[string]interface{}{constants.FieldRowId: "t-1", constants.FieldChatId: int64(55)})
	n, err := l.Load(ctx, []stream.Record{in})
	if err != nil || n != 1 {
		t.Fatalf("unexpected load result %v, %v", n, err)
	}
	r := loaded[0]
	if r.GetData(constants.FieldRowId) != "row-1" || r.GetData("uuid_ticket") != "t-1" {
		t.Fatalf("unexpected ids on loaded row: %v", r)
	}
	if r.GetData(constants.FieldChatId) != "55" {
		t.Fatalf("expected chat_id as text; got %#v", r.GetData(constants.FieldChatId))
	}
	upload := r.GetData(constants.FieldUpload).(time.Time)
	if !upload.Equal(now) || upload.Format(constants.TimeFormatWindow) != "2025-03-01T12:00:00-03:00" {
		t.Fatalf("unexpected upload time %v", upload)
	}
	if in.GetData(constants.FieldRowId) != "t-1" {
		t.Fatal("expected the input row to be left unchanged")
	}
}

func TestLoader_FailedLoadIsAnError(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := mocks.NewMockSink(ctrl)
	ctx := context.Background()
	sink.EXPECT().TableExists(ctx, testTable).Return(true, nil)
	sink.EXPECT().LoadAppend(ctx, testTable, gomock.Any()).Return(errors.New("boom"))
	l := NewLoader(log, sink, testTable)
	if _, err := l.Load(ctx, []stream.Record{ticketRow("1", "a")}); err == nil {
		t.Fatal("expected load error")
	}
}

func TestLoader_NothingToLoad(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := mocks.NewMockSink(ctrl)
	ctx := context.Background()
	sink.EXPECT().TableExists(ctx, testTable).Return(true, nil)
	n, err := NewLoader(log, sink, testTable).Load(ctx, nil)
	if err != nil || n != 0 {
		t.Fatalf("unexpected result %v, %v", n, err)
	}
}

func TestLoader_FinaliseMixedChatRows(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	l := NewLoader(log, nil, testTable)
	rows := []stream.Record{
		stream.NewRecordFromMap(map[string]interface{}{ // failed chat first so it decides inferred types.
			constants.FieldChatNumber:       int64(1),
			constants.FieldError:            true,
			constants.FieldErrorDetail:      "error fetching chat c-1: 500",
			constants.FieldChatTicketNumber: int64(101),
			constants.FieldTicketNumber:     json.Number("101"),
		}),
		stream.NewRecordFromMap(map[string]interface{}{
			constants.FieldChatNumber:       int64(2),
			constants.FieldError:            true,
			constants.FieldErrorDetail:      constants.ErrorChatNotFound,
			constants.FieldChatTicketNumber: "T1",
			constants.FieldTicketNumber:     "T1",
		}),
	}
	final := l.Finalise(rows)
	cols := rdbms.InferColumns(final)
	types := make(map[string]rdbms.ColumnType)
	for _, c := range cols {
		types[c.Name] = c.Type
	}
	expected := map[string]rdbms.ColumnType{
		constants.FieldError:            rdbms.ColumnTypeBool,
		constants.FieldErrorDetail:      rdbms.ColumnTypeString,
		constants.FieldChatTicketNumber: rdbms.ColumnTypeString,
		constants.FieldTicketNumber:     rdbms.ColumnTypeString,
	}
	for k, v := range expected {
		if types[k] != v {
			t.Fatalf("expected column %v of type %v; got %v", k, v, types[k])
		}
	}
	for i, r := range final {
		for _, c := range cols {
			if _, err := rdbms.CoerceValue(r.GetData(c.Name), c.Type); err != nil {
				t.Fatalf("row %v does not fit the inferred columns: %v", i, err)
			}
		}
	}
	if final[0].GetData(constants.FieldChatTicketNumber) != "101" {
		t.Fatalf("expected the chat ticket number as text; got %#v", final[0].GetData(constants.FieldChatTicketNumber))
	}
}
