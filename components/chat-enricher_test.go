package components

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
)

func TestChatEnricher_Enrich(t *testing.T) {
	srv, client := newFakeHelpdesk(t)
	defer srv.Close()
	srv.Chats = []map[string]interface{}{{"id": "c-1", "number": 1}, {"id": "c-3", "number": 3}}
	srv.ChatDetails["c-1"] = map[string]interface{}{
		"status":     "closed",
		"createdAt":  "2025-03-01T09:00:00-03:00",
		"ClosedAt":   "2025-03-01T09:30:00-03:00",
		"agent":      map[string]interface{}{"name": "Bia"},
		"satisfacao": 5,
		"customFields": []interface{}{
			map[string]interface{}{"key": "Pedido Nº", "value": "P-1"},
		},
		"contact": map[string]interface{}{
			"id":    "ct-1",
			"name":  "Ana",
			"email": "ana@example.com",
			"customFields": []interface{}{
				map[string]interface{}{"key": "cpf", "value": "123"},
			},
		},
	}
	srv.Events["c-1"] = []interface{}{ticketEvent("T1")}
	srv.Fail = func(r *http.Request) int {
		if r.URL.Path == "/chat/c-3" {
			return http.StatusInternalServerError
		}
		return 0
	}
	e := NewChatEnricher(logger.NewLogger("deskpipe", "info", true), client)
	rows := e.Enrich(context.Background(), []interface{}{1, 2, 3})
	if len(rows) != 3 {
		t.Fatalf("expected one row per number; got %v", len(rows))
	}
	ok := rows[0]
	expected := map[string]interface{}{
		constants.FieldChatNumber: 1,
		constants.FieldChatId:     "c-1",
		"status":                  "closed",
		"closed_at":               "2025-03-01T09:30:00-03:00",
		"agent_name":              "Bia",
		"satisfacao":              json.Number("5"),
		"chat_cf_Pedido_N_":       "P-1",
		"contact_id":              "ct-1",
		"contact_cf_cpf":          "123",
		"evt_ticket":              true,
		"evt_ticket_ticketNumber": "T1",
	}
	for k, v := range expected {
		if ok.GetData(k) != v {
			t.Fatalf("expected %v = %v; got %v", k, v, ok.GetData(k))
		}
	}
	if ok.HasData(constants.FieldError) {
		t.Fatalf("unexpected error column on enriched row: %v", ok)
	}
	if v, present := ok.LookupData("department"); !present || v != nil {
		t.Fatalf("expected null department column; got %v", v)
	}
	if rows[1].GetData(constants.FieldError) != true || rows[1].GetData(constants.FieldErrorDetail) != constants.ErrorChatNotFound {
		t.Fatalf("unexpected not found row: %v", rows[1])
	}
	if ChatFailed(rows[1]) {
		t.Fatal("a chat that was not found must not count as failed")
	}
	if rows[2].GetData(constants.FieldError) != true || rows[2].GetData(constants.FieldErrorDetail) == nil {
		t.Fatalf("unexpected failed row: %v", rows[2])
	}
	if !ChatFailed(rows[2]) {
		t.Fatal("expected the failed row to count as failed")
	}
	if rows[2].GetData(constants.FieldChatNumber) != 3 {
		t.Fatalf("expected the failed row to carry its number: %v", rows[2])
	}
}
