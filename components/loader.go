package components

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/rdbms"
	"github.com/relloyd/deskpipe/stream"
)

const fieldTicketRowId = constants.FieldRowId + constants.SuffixTicket

// textKeyColumns hold ids that may arrive as numbers or strings.
var textKeyColumns = []string{constants.FieldChatId, constants.FieldTicketNumber, constants.FieldChatTicketNumber}

// SeedColumns is the schema used to create the target table. Everything else is added on load.
var SeedColumns = []rdbms.Column{
	{Name: constants.FieldChatId, Type: rdbms.ColumnTypeString},
	{Name: constants.FieldTicketNumber, Type: rdbms.ColumnTypeString},
}

// Loader finalises merged rows and appends them to the target table.
type Loader struct {
	Log   logger.Logger
	Sink  rdbms.Sink
	Table rdbms.TableID
	Now   func() time.Time
	NewId func() string
}

func NewLoader(log logger.Logger, sink rdbms.Sink, table rdbms.TableID) *Loader {
	return &Loader{Log: log, Sink: sink, Table: table, Now: time.Now, NewId: uuid.NewString}
}

// Finalise returns copies of rows with a fresh uuid and the upload time set. A uuid that came from the
// ticket side is kept as uuid_ticket. Key columns are stored as text.
func (l *Loader) Finalise(rows []stream.Record) []stream.Record {
	upload := l.Now().In(constants.BRT)
	retval := make([]stream.Record, len(rows))
	for i, r := range rows {
		out := r.Copy()
		if out.HasData(constants.FieldRowId) && !out.HasData(fieldTicketRowId) {
			out.RenameData(constants.FieldRowId, fieldTicketRowId)
		}
		out.SetData(constants.FieldRowId, l.NewId())
		out.SetData(constants.FieldUpload, upload)
		for _, k := range textKeyColumns {
			if v, ok := stream.JoinKey(out.GetData(k)); ok {
				out.SetData(k, v)
			}
		}
		retval[i] = out
	}
	return retval
}

// EnsureTable creates the target table with SeedColumns if it does not exist.
func (l *Loader) EnsureTable(ctx context.Context) error {
	exists, err := l.Sink.TableExists(ctx, l.Table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	l.Log.Info("creating table ", l.Table)
	return l.Sink.CreateTable(ctx, l.Table, SeedColumns)
}

// Load finalises rows and appends them in a single call to the sink.
func (l *Loader) Load(ctx context.Context, rows []stream.Record) (int, error) {
	if err := l.EnsureTable(ctx); err != nil {
		return 0, errors.Wrapf(err, "error preparing table %v", l.Table)
	}
	if len(rows) == 0 {
		l.Log.Info("no rows to load")
		return 0, nil
	}
	final := l.Finalise(rows)
	if err := l.Sink.LoadAppend(ctx, l.Table, final); err != nil {
		return 0, errors.Wrapf(err, "error loading %v rows into %v", len(final), l.Table)
	}
	l.Log.Info("upload complete: ", len(final), " rows into ", l.Table)
	return len(final), nil
}
