package helpdesk

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helpdesk/helpdesktest"
	"github.com/relloyd/deskpipe/logger"
)

func newTestClient(log logger.Logger, url string, maxRetries int) (*Client, *[]time.Duration) {
	c := NewClient(log, ClientConfig{
		BaseUrl:    url,
		ApiKey:     helpdesktest.ApiKey,
		AgentEmail: helpdesktest.AgentEmail,
		MaxRetries: maxRetries,
	})
	waits := make([]time.Duration, 0)
	c.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func makeItems(n int) []map[string]interface{} {
	retval := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		retval[i] = map[string]interface{}{"id": fmt.Sprintf("id-%v", i), "number": i + 1}
	}
	return retval
}

func testWindow() Window {
	end := time.Date(2025, 3, 2, 0, 0, 0, 0, constants.BRT)
	return NewWindow(end.Add(-24*time.Hour), end)
}

func TestExtractor_FetchTerminatesOnEmptyPage(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	for _, envelope := range []bool{false, true} {
		srv := helpdesktest.NewServer()
		srv.Envelope = envelope
		srv.Tickets = makeItems(30) // 3 full pages of 10.
		c, _ := newTestClient(log, srv.URL, 3)
		e := &Extractor{Log: log, Client: c, Resource: constants.ResourceTickets, PageSize: 10}
		got, err := e.Fetch(context.Background(), testWindow())
		srv.Close()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 30 {
			t.Fatalf("expected 30 records; got %v", len(got))
		}
		if got[0].GetData("id") != "id-0" || got[29].GetData("id") != "id-29" {
			t.Fatalf("unexpected record order: first %v last %v", got[0], got[29])
		}
		if calls := srv.Calls("tickets"); calls != 4 {
			t.Fatalf("expected N+1 = 4 calls; got %v", calls)
		}
	}
}

func TestExtractor_ClampsPageSize(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	srv := helpdesktest.NewServer()
	defer srv.Close()
	srv.Tickets = makeItems(150)
	limits := make([]string, 0)
	srv.Fail = func(r *http.Request) int {
		limits = append(limits, r.URL.Query().Get("limit"))
		return 0
	}
	c, _ := newTestClient(log, srv.URL, 3)
	e := &Extractor{Log: log, Client: c, Resource: constants.ResourceTickets, PageSize: 500}
	got, err := e.Fetch(context.Background(), testWindow())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 150 || srv.Calls("tickets") != 3 {
		t.Fatalf("expected 150 records in 3 calls; got %v in %v", len(got), srv.Calls("tickets"))
	}
	if !reflect.DeepEqual(limits, []string{"100", "100", "100"}) {
		t.Fatalf("expected clamped limit of 100; got %v", limits)
	}
}

func TestExtractor_SendsWindowFilters(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	srv := helpdesktest.NewServer()
	defer srv.Close()
	var query map[string][]string
	srv.Fail = func(r *http.Request) int {
		query = r.URL.Query()
		return 0
	}
	c, _ := newTestClient(log, srv.URL, 3)
	e := &Extractor{Log: log, Client: c, Resource: constants.ResourceChats}
	if _, err := e.Fetch(context.Background(), testWindow()); err != nil {
		t.Fatal(err)
	}
	expected := map[string]string{
		"filters[0][property]": "createdAt",
		"filters[0][operator]": "ge",
		"filters[0][value]":    "2025-03-01T00:00:00-03:00",
		"filters[1][property]": "createdAt",
		"filters[1][operator]": "le",
		"filters[1][value]":    "2025-03-02T00:00:00-03:00",
		"sort[property]":       "createdAt",
		"sort[direction]":      "asc",
		"page":                 "1",
		"limit":                "100",
	}
	for k, v := range expected {
		if len(query[k]) != 1 || query[k][0] != v {
			t.Fatalf("expected query %v=%v; got %v", k, v, query[k])
		}
	}
}

func TestClient_BackoffOnRepeated500(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	srv := helpdesktest.NewServer()
	defer srv.Close()
	srv.Fail = func(r *http.Request) int { return http.StatusInternalServerError }
	c, waits := newTestClient(log, srv.URL, 4)
	e := &Extractor{Log: log, Client: c, Resource: constants.ResourceTickets}
	_, err := e.Fetch(context.Background(), testWindow())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	se, ok := AsStatusError(err)
	if !ok || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected a 500 StatusError; got %v", err)
	}
	if calls := srv.Calls("tickets"); calls != 4 {
		t.Fatalf("expected exactly 4 attempts; got %v", calls)
	}
	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if !reflect.DeepEqual(*waits, expected) {
		t.Fatalf("expected waits %v; got %v", expected, *waits)
	}
}

func TestClient_RetriesConflictThenSucceeds(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	srv := helpdesktest.NewServer()
	defer srv.Close()
	srv.Tickets = makeItems(2)
	n := 0
	srv.Fail = func(r *http.Request) int {
		n++
		if n == 1 {
			return http.StatusConflict
		}
		return 0
	}
	c, waits := newTestClient(log, srv.URL, 3)
	e := &Extractor{Log: log, Client: c, Resource: constants.ResourceTickets}
	got, err := e.Fetch(context.Background(), testWindow())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || len(*waits) != 1 {
		t.Fatalf("expected 2 records after 1 wait; got %v records and waits %v", len(got), *waits)
	}
}

func TestClient_FailFastOnClientError(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	srv := helpdesktest.NewServer()
	defer srv.Close()
	c, waits := newTestClient(log, srv.URL, 3)
	c.rc.SetHeader(constants.HeaderApiKey, "wrong")
	e := &Extractor{Log: log, Client: c, Resource: constants.ResourceTickets}
	_, err := e.Fetch(context.Background(), testWindow())
	se, ok := AsStatusError(err)
	if !ok || se.Code != http.StatusUnauthorized {
		t.Fatalf("expected a 401 StatusError; got %v", err)
	}
	if srv.Calls("tickets") != 1 || len(*waits) != 0 {
		t.Fatalf("expected a single call without waiting; got %v calls, waits %v", srv.Calls("tickets"), *waits)
	}
}

func TestResultsList(t *testing.T) {
	list := []interface{}{map[string]interface{}{"a": 1}}
	if got := ResultsList(list); len(got) != 1 {
		t.Fatal("expected bare list to be returned")
	}
	if got := ResultsList(map[string]interface{}{"results": list}); len(got) != 1 {
		t.Fatal("expected envelope results to be returned")
	}
	for _, body := range []interface{}{nil, "x", map[string]interface{}{"data": list}} {
		if got := ResultsList(body); got != nil {
			t.Fatalf("expected nil page for %v; got %v", body, got)
		}
	}
}
