// Package helpdesktest provides an in-memory helpdesk API served over httptest for use in tests.
package helpdesktest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/relloyd/deskpipe/constants"
)

const (
	ApiKey     = "test-key"
	AgentEmail = "agent@example.com"
)

// Server is a fake helpdesk. Populate the exported fields before making requests.
type Server struct {
	*httptest.Server
	mu sync.Mutex

	Tickets     []map[string]interface{}
	Chats       []map[string]interface{}
	ChatDetails map[string]map[string]interface{} // keyed by chat id.
	Events      map[string][]interface{}          // keyed by chat id.
	Envelope    bool                              // wrap list responses in {"results": [...]}.

	// Fail, when set, is consulted first. A non-zero status is returned as the response.
	Fail func(r *http.Request) int

	calls map[string]int
}

// NewServer starts a fake helpdesk. Call Close when done.
func NewServer() *Server {
	s := &Server{
		ChatDetails: make(map[string]map[string]interface{}),
		Events:      make(map[string][]interface{}),
		calls:       make(map[string]int),
	}
	r := mux.NewRouter()
	r.Use(s.middleware)
	r.HandleFunc("/tickets", s.listTickets).Methods(http.MethodGet).Name("tickets")
	r.HandleFunc("/tickets/{number}", s.getTicket).Methods(http.MethodGet).Name("ticket")
	r.HandleFunc("/chat", s.listChats).Methods(http.MethodGet).Name("chats")
	r.HandleFunc("/chat/{id}", s.getChat).Methods(http.MethodGet).Name("chat")
	r.HandleFunc("/chat/{id}/events", s.getEvents).Methods(http.MethodGet).Name("events")
	s.Server = httptest.NewServer(r)
	return s
}

// Calls returns how many requests were made to the named route:
// tickets, ticket, chats, chat or events.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			s.mu.Lock()
			s.calls[route.GetName()]++
			s.mu.Unlock()
		}
		if r.Header.Get(constants.HeaderApiKey) != ApiKey || r.Header.Get(constants.HeaderAgentEmail) != AgentEmail {
			http.Error(w, `{"message":"unauthorised"}`, http.StatusUnauthorized)
			return
		}
		if s.Fail != nil {
			if code := s.Fail(r); code != 0 {
				http.Error(w, fmt.Sprintf(`{"message":"injected %v"}`, code), code)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeList(w http.ResponseWriter, items []map[string]interface{}) {
	list := make([]interface{}, len(items))
	for i := range items {
		list[i] = items[i]
	}
	if s.Envelope {
		writeJson(w, map[string]interface{}{"results": list})
		return
	}
	writeJson(w, list)
}

func writeJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	s.writeList(w, page(r, filterCreatedAt(r, s.Tickets)))
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	n := mux.Vars(r)["number"]
	for _, t := range s.Tickets {
		if fmt.Sprint(t["number"]) == n {
			writeJson(w, t)
			return
		}
	}
	http.Error(w, `{"message":"ticket not found"}`, http.StatusNotFound)
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("filters[0][property]") == "number" && q.Get("filters[0][operator]") == "eq" {
		want := q.Get("filters[0][value]")
		out := make([]map[string]interface{}, 0)
		for _, c := range s.Chats {
			if fmt.Sprint(c["number"]) == want {
				out = append(out, c)
				break
			}
		}
		s.writeList(w, out)
		return
	}
	s.writeList(w, page(r, filterCreatedAt(r, s.Chats)))
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if d, ok := s.ChatDetails[id]; ok {
		writeJson(w, d)
		return
	}
	http.Error(w, `{"message":"chat not found"}`, http.StatusNotFound)
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ev, ok := s.Events[id]
	if !ok {
		ev = make([]interface{}, 0)
	}
	if s.Envelope {
		writeJson(w, map[string]interface{}{"results": ev})
		return
	}
	writeJson(w, ev)
}

// filterCreatedAt applies the ge/le createdAt filters. Items without a parseable createdAt are kept.
func filterCreatedAt(r *http.Request, items []map[string]interface{}) []map[string]interface{} {
	q := r.URL.Query()
	from, errFrom := time.Parse(constants.TimeFormatWindow, q.Get("filters[0][value]"))
	to, errTo := time.Parse(constants.TimeFormatWindow, q.Get("filters[1][value]"))
	if errFrom != nil || errTo != nil {
		return items
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		s, _ := it["createdAt"].(string)
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil || (!ts.Before(from) && !ts.After(to)) {
			out = append(out, it)
		}
	}
	return out
}

func page(r *http.Request, items []map[string]interface{}) []map[string]interface{} {
	q := r.URL.Query()
	p, err := strconv.Atoi(q.Get("page"))
	if err != nil || p < 1 {
		p = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = constants.PageSizeMax
	}
	start := (p - 1) * limit
	if start >= len(items) {
		return []map[string]interface{}{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
