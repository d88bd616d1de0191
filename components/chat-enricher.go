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

// chatDetailFields maps chat detail paths to output columns.
var chatDetailFields = [][2]string{
	{"status", "status"},
	{"createdAt", "created_at"},
	{"closedAt", "closed_at"},
	{"channel", "channel"},
	{"department", "department"},
	{"agent.name", "agent_name"},
	{"origin", "origin"},
	{"Regiao", "Regiao"},
	{"bairro", "bairro"},
	{"satisfacao", "satisfacao"},
}

var contactFields = [][2]string{
	{"id", "contact_id"},
	{"name", "contact_name"},
	{"email", "contact_email"},
	{"phone", "contact_phone"},
}

// ChatEnricher builds one row per chat number from three lookups: the chat id, the chat detail and
// the chat's events. A failure for one chat is recorded on its row and never stops the batch.
type ChatEnricher struct {
	Log      logger.Logger
	Client   *helpdesk.Client
	Resolver *TicketResolver
}

func NewChatEnricher(log logger.Logger, client *helpdesk.Client) *ChatEnricher {
	return &ChatEnricher{Log: log, Client: client, Resolver: &TicketResolver{Log: log, Client: client}}
}

// Enrich returns one sanitised row per number in the same order.
func (e *ChatEnricher) Enrich(ctx context.Context, numbers []interface{}) []stream.Record {
	retval := make([]stream.Record, 0, len(numbers))
	failures := 0
	for _, n := range numbers {
		rec := e.enrichOne(ctx, n)
		if ChatFailed(rec) {
			failures++
		}
		rec.SanitiseColumns()
		retval = append(retval, rec)
	}
	e.Log.Info("enriched ", len(numbers), " chats (", failures, " failed)")
	return retval
}

// ChatFailed reports whether rec is the marker row of a chat whose lookups failed.
// Chats that were not found are not failures.
func ChatFailed(rec stream.Record) bool {
	v, ok := rec.LookupData(constants.FieldErrorDetail)
	return ok && v != constants.ErrorChatNotFound
}

func (e *ChatEnricher) enrichOne(ctx context.Context, number interface{}) stream.Record {
	rec := stream.NewRecord()
	rec.SetData(constants.FieldChatNumber, number)
	fail := func(err error) stream.Record {
		e.Log.Warn("error enriching chat ", number, ": ", err)
		rec.SetData(constants.FieldError, true)
		rec.SetData(constants.FieldErrorDetail, err.Error())
		return rec
	}
	id := e.Resolver.ChatID(ctx, number)
	switch id.Status {
	case LookupNotFound:
		rec.SetData(constants.FieldError, true)
		rec.SetData(constants.FieldErrorDetail, constants.ErrorChatNotFound)
		return rec
	case LookupFailed:
		return fail(id.Err)
	}
	chatID := id.Value.(string)
	rec.SetData(constants.FieldChatId, chatID)
	// Chat detail.
	body, err := e.Client.Get(ctx, "/"+constants.ResourceChats+"/"+url.PathEscape(chatID), nil)
	if err != nil {
		return fail(errors.Wrapf(err, "error fetching chat %v", chatID))
	}
	detail, _ := body.(map[string]interface{})
	flat := stream.Flatten(detail, ".")
	for _, f := range chatDetailFields {
		rec.SetData(f[1], flat.GetData(f[0]))
	}
	if rec.GetData("closed_at") == nil {
		rec.SetData("closed_at", flat.GetData("ClosedAt"))
	}
	stream.FlattenCustomFields("chat_cf_", detail["customFields"], nil).CopyTo(rec)
	contact, _ := detail["contact"].(map[string]interface{})
	for _, f := range contactFields {
		rec.SetData(f[1], contact[f[0]])
	}
	stream.FlattenCustomFields("contact_cf_", contact["customFields"], nil).CopyTo(rec)
	// Events.
	events, err := e.Resolver.events(ctx, chatID)
	if err != nil {
		return fail(err)
	}
	stream.FlattenEvents(events).CopyTo(rec)
	return rec
}
