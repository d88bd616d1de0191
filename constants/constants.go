package constants

import "time"

const (
	EnvVarPrefix               = "DP"              // prefixed for environment variables in twelveFactorMode
	TimeFormatYearSeconds      = "20060102T150405" // used for human readable file names
	TimeFormatYearSecondsRegex = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	TimeFormatWindow           = "2006-01-02T15:04:05-07:00" // ISO-8601, seconds precision, explicit offset
	ConnectionTypeSnowflake    = "snowflake"
	ConnectionTypePostgres     = "postgres"
	ConnectionTypeStdout       = "stdout"
)

// Helpdesk API.
const (
	ResourceTickets          = "tickets"
	ResourceChats            = "chat"
	PageSizeMax              = 100
	DefaultMaxRetries        = 3
	DefaultBackoffBase       = time.Second
	DefaultMinWindow         = time.Hour
	DefaultMaxSplitDepth     = 16
	HeaderApiKey             = "x-api-key"
	HeaderAgentEmail         = "octa-agent-email"
	EventTypeTicket          = "ticket"
	EventFieldTicketNumber   = "ticketNumber"
	StatusResolvedDefault    = "Resolvido"
	ColumnNameMaxLen         = 300
	ChatModeEnrich           = "enrich"
	ChatModeBulk             = "bulk"
	DedupPolicyIndependent   = "independent"
	DedupPolicyTicket        = "ticket"
	DedupPolicyChat          = "chat"
	FieldSourceId            = "id"
	FieldTicketNumber        = "n_ticket"
	FieldChatNumber          = "number"
	FieldChatId              = "chat_id"
	FieldChatTicketNumber    = "evt_ticket_ticketNumber"
	FieldRowId               = "uuid"
	FieldUpload              = "upload"
	FieldError               = "error"
	FieldErrorDetail         = "error_detail"
	SuffixChat               = "_chat"
	SuffixTicket             = "_ticket"
	SinkInsertBatchSizeRows  = 500
	ErrorChatNotFound        = "chat not found"
)

// BRT is the fixed UTC-3 offset used for window boundaries and upload timestamps.
var BRT = time.FixedZone("BRT", -3*60*60)
