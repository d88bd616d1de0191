package components

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/helpdesk"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

type LookupStatus int

const (
	LookupNotFound LookupStatus = iota
	LookupFound
	LookupFailed
)

func (s LookupStatus) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupFailed:
		return "failed"
	default:
		return "not found"
	}
}

// LookupResult tells a genuine absence apart from a failed request.
type LookupResult struct {
	Status LookupStatus
	Value  interface{}
	Err    error
}

func found(v interface{}) LookupResult {
	return LookupResult{Status: LookupFound, Value: v}
}

func failed(err error) LookupResult {
	return LookupResult{Status: LookupFailed, Err: err}
}

// TicketResolver discovers the ticket linked to a chat through the chat's events.
// Lookups are single attempts and never return errors; failures come back as LookupFailed.
type TicketResolver struct {
	Log    logger.Logger
	Client *helpdesk.Client
}

// ChatID finds the internal id of the chat with the given public number.
func (t *TicketResolver) ChatID(ctx context.Context, number interface{}) LookupResult {
	n, ok := stream.JoinKey(number)
	if !ok {
		return LookupResult{Status: LookupNotFound}
	}
	body, err := t.Client.Get(ctx, "/"+constants.ResourceChats, helpdesk.EqualsParams("number", n))
	if err != nil {
		return failed(err)
	}
	results := helpdesk.ResultsList(body)
	if len(results) == 0 {
		return LookupResult{Status: LookupNotFound}
	}
	chat, _ := results[0].(map[string]interface{})
	id, ok := stream.JoinKey(chat["id"])
	if !ok {
		return LookupResult{Status: LookupNotFound}
	}
	return found(id)
}

// TicketNumber scans the events of chat chatID for the first ticket event and returns its ticket number
// as an integer when possible, otherwise as the raw value.
func (t *TicketResolver) TicketNumber(ctx context.Context, chatID string) LookupResult {
	events, err := t.events(ctx, chatID)
	if err != nil {
		return failed(err)
	}
	if v := ticketNumberFromEvents(events); v != nil {
		return found(stream.CoerceInt(v))
	}
	return LookupResult{Status: LookupNotFound}
}

// TicketNumberForChat chains ChatID and TicketNumber. Events are not requested unless the chat id is found.
func (t *TicketResolver) TicketNumberForChat(ctx context.Context, number interface{}) LookupResult {
	id := t.ChatID(ctx, number)
	if id.Status != LookupFound {
		return id
	}
	return t.TicketNumber(ctx, id.Value.(string))
}

func (t *TicketResolver) events(ctx context.Context, chatID string) ([]interface{}, error) {
	body, err := t.Client.Get(ctx, "/"+constants.ResourceChats+"/"+url.PathEscape(chatID)+"/events", nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching events for chat %v", chatID)
	}
	return helpdesk.ResultsList(body), nil
}

func ticketNumberFromEvents(events []interface{}) interface{} {
	for _, item := range events {
		ev, ok := item.(map[string]interface{})
		if !ok || ev["type"] != constants.EventTypeTicket {
			continue
		}
		if data, ok := ev["data"].(map[string]interface{}); ok && data[constants.EventFieldTicketNumber] != nil {
			return data[constants.EventFieldTicketNumber]
		}
	}
	return nil
}

// ResolveChats sets the ticket number column on each chat row from its number. Rows that cannot be
// resolved get a null; failed lookups are logged and counted.
func (t *TicketResolver) ResolveChats(ctx context.Context, chats []stream.Record) (failures int) {
	for _, c := range chats {
		res := t.TicketNumberForChat(ctx, c.GetData(constants.FieldChatNumber))
		switch res.Status {
		case LookupFound:
			c.SetData(constants.FieldChatTicketNumber, res.Value)
		case LookupFailed:
			failures++
			t.Log.Warn("ticket lookup failed for chat ", c.GetData(constants.FieldChatNumber), ": ", res.Err)
			c.SetData(constants.FieldChatTicketNumber, nil)
		default:
			c.SetData(constants.FieldChatTicketNumber, nil)
		}
	}
	t.Log.Info("resolved tickets for ", len(chats), " chats (", failures, " failed)")
	return failures
}
