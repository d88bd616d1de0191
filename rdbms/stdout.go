package rdbms

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

// StdoutSink prints what would be written to a real sink as YAML. It holds no data so queries return
// no rows, which makes every candidate row new.
type StdoutSink struct {
	log    logger.Logger
	w      io.Writer
	mu     sync.Mutex
	tables map[string][]Column
}

func NewStdoutSink(log logger.Logger, w io.Writer) *StdoutSink {
	return &StdoutSink{log: log, w: w, tables: make(map[string][]Column)}
}

func (s *StdoutSink) TableExists(ctx context.Context, id TableID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[id.String()]
	return ok, nil
}

func (s *StdoutSink) CreateTable(ctx context.Context, id TableID, cols []Column) error {
	s.mu.Lock()
	s.tables[id.String()] = append([]Column{}, cols...)
	s.mu.Unlock()
	return s.print(map[string]interface{}{"createTable": id.String(), "columns": columnMaps(cols)})
}

func (s *StdoutSink) EnsureColumns(ctx context.Context, id TableID, cols []Column) error {
	s.mu.Lock()
	existing := make(map[string]ColumnType)
	for _, c := range s.tables[id.String()] {
		existing[c.Name] = c.Type
	}
	missing := missingColumns(existing, cols)
	s.tables[id.String()] = append(s.tables[id.String()], missing...)
	s.mu.Unlock()
	if len(missing) == 0 {
		return nil
	}
	return s.print(map[string]interface{}{"addColumns": id.String(), "columns": columnMaps(missing)})
}

func (s *StdoutSink) Query(ctx context.Context, sql string, params ...Param) ([]stream.Record, error) {
	s.log.Debug("stdout sink ignoring query: ", sql)
	return []stream.Record{}, nil
}

func (s *StdoutSink) Exec(ctx context.Context, sql string, params ...Param) (int64, error) {
	p := make(map[string]interface{}, len(params))
	for _, x := range params {
		p[x.Name] = stream.NormaliseValue(x.Value)
	}
	return 0, s.print(map[string]interface{}{"exec": sql, "params": p})
}

func (s *StdoutSink) LoadAppend(ctx context.Context, id TableID, recs []stream.Record) error {
	if err := s.EnsureColumns(ctx, id, InferColumns(recs)); err != nil {
		return err
	}
	rows := make([]map[string]interface{}, len(recs))
	for i, r := range recs {
		m := make(map[string]interface{}, r.GetDataLen())
		for k, v := range r.GetDataMap() {
			m[k] = stream.NormaliseValue(v)
		}
		rows[i] = m
	}
	return s.print(map[string]interface{}{"append": id.String(), "rows": rows})
}

func (s *StdoutSink) Close() {}

func (s *StdoutSink) print(v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "error marshalling sink output to YAML")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err = fmt.Fprintf(s.w, "---\n%s", b); err != nil {
		return errors.Wrap(err, "error writing sink output")
	}
	return nil
}

func columnMaps(cols []Column) []map[string]string {
	retval := make([]map[string]string, len(cols))
	for i, c := range cols {
		retval[i] = map[string]string{"name": c.Name, "type": string(c.Type)}
	}
	return retval
}
