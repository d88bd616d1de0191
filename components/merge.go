package components

import (
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/stream"
)

// MergeConfig names the join columns on each side and the suffixes for columns found on both sides.
type MergeConfig struct {
	ChatKey      string
	TicketKey    string
	ChatSuffix   string
	TicketSuffix string
}

func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		ChatKey:      constants.FieldChatTicketNumber,
		TicketKey:    constants.FieldTicketNumber,
		ChatSuffix:   constants.SuffixChat,
		TicketSuffix: constants.SuffixTicket,
	}
}

// Merge full outer joins chats and tickets on cfg.ChatKey = cfg.TicketKey. Keys are compared after
// normalisation by stream.JoinKey and null keys never match. Columns present on both sides are renamed
// with the side suffix on every output row. Many-to-many matches give one row per pair.
// Output holds the chat rows in input order followed by the tickets that matched no chat.
func Merge(chats []stream.Record, tickets []stream.Record, cfg MergeConfig) []stream.Record {
	clash := clashingColumns(chats, tickets, cfg)
	ticketsByKey := make(map[string][]int)
	for i, t := range tickets {
		if k, ok := stream.JoinKey(t.GetData(cfg.TicketKey)); ok {
			ticketsByKey[k] = append(ticketsByKey[k], i)
		}
	}
	matched := make([]bool, len(tickets))
	retval := make([]stream.Record, 0, len(chats)+len(tickets))
	for _, c := range chats {
		var idx []int
		if k, ok := stream.JoinKey(c.GetData(cfg.ChatKey)); ok {
			idx = ticketsByKey[k]
		}
		if len(idx) == 0 {
			retval = append(retval, mergeSides(c, stream.NewNilRecord(), clash, cfg))
			continue
		}
		for _, i := range idx {
			matched[i] = true
			retval = append(retval, mergeSides(c, tickets[i], clash, cfg))
		}
	}
	for i, t := range tickets {
		if !matched[i] {
			retval = append(retval, mergeSides(stream.NewNilRecord(), t, clash, cfg))
		}
	}
	return retval
}

func clashingColumns(chats []stream.Record, tickets []stream.Record, cfg MergeConfig) map[string]struct{} {
	chatCols := make(map[string]struct{})
	for _, c := range chats {
		for k := range c.GetDataMap() {
			chatCols[k] = struct{}{}
		}
	}
	retval := make(map[string]struct{})
	for _, t := range tickets {
		for k := range t.GetDataMap() {
			if _, ok := chatCols[k]; ok && !(k == cfg.ChatKey && k == cfg.TicketKey) {
				retval[k] = struct{}{}
			}
		}
	}
	return retval
}

func mergeSides(chat stream.Record, ticket stream.Record, clash map[string]struct{}, cfg MergeConfig) stream.Record {
	retval := stream.NewRecord()
	copySide := func(r stream.Record, suffix string) {
		for k, v := range r.GetDataMap() {
			if _, ok := clash[k]; ok {
				k += suffix
			}
			retval.SetData(k, v)
		}
	}
	if !chat.RecordIsNil() {
		copySide(chat, cfg.ChatSuffix)
	}
	if !ticket.RecordIsNil() {
		copySide(ticket, cfg.TicketSuffix)
	}
	return retval
}
