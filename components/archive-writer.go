package components

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/aws/s3"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

// ArchiveWriter copies the rows of a run to S3 as one JSON document per line.
type ArchiveWriter struct {
	Log    logger.Logger
	Client s3.BufferPutter
	Now    func() time.Time
}

func NewArchiveWriter(log logger.Logger, client s3.BufferPutter) *ArchiveWriter {
	return &ArchiveWriter{Log: log, Client: client, Now: time.Now}
}

// ArchiveKey returns the object key for run runId: <yyyy>/<mm>/<dd>/deskpipe-<runId>.jsonl in BRT.
func ArchiveKey(t time.Time, runId string) string {
	return fmt.Sprintf("%v/deskpipe-%v.jsonl", t.In(constants.BRT).Format("2006/01/02"), runId)
}

// Write puts rows under ArchiveKey and returns the key used. Nothing is written when rows is empty.
func (a *ArchiveWriter) Write(ctx context.Context, runId string, rows []stream.Record) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	for idx, r := range rows {
		j, err := r.GetJson()
		if err != nil {
			return "", errors.Wrapf(err, "error archiving row %v", idx)
		}
		buf.WriteString(j)
		buf.WriteByte('\n')
	}
	key := ArchiveKey(a.Now(), runId)
	if err := a.Client.BufferPut(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
		return "", errors.Wrapf(err, "error writing archive %v", key)
	}
	a.Log.Info("archived ", len(rows), " rows to ", key)
	return key, nil
}
