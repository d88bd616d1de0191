package rdbms

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

type dialect struct {
	name        string
	placeholder PlaceholderFunc
	typeNames   map[ColumnType]string
	// columnType maps an information_schema data_type back to a ColumnType.
	columnType func(dataType string) ColumnType
}

// SqlSink is a Sink over database/sql.
type SqlSink struct {
	log     logger.Logger
	db      *sql.DB
	dialect dialect
}

func (s *SqlSink) TableExists(ctx context.Context, id TableID) (bool, error) {
	q := fmt.Sprintf("select count(*) from %v.information_schema.tables where table_schema = %v and table_name = %v",
		QuoteIdentifier(id.Project), s.dialect.placeholder(1), s.dialect.placeholder(2))
	var n int64
	if err := s.db.QueryRowContext(ctx, q, id.Dataset, id.Table).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "error checking table %v exists", id)
	}
	return n > 0, nil
}

func (s *SqlSink) CreateTable(ctx context.Context, id TableID, cols []Column) error {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%v %v", QuoteIdentifier(c.Name), s.dialect.typeNames[c.Type])
	}
	q := fmt.Sprintf("create table if not exists %v (%v)", id.Quoted(), strings.Join(defs, ", "))
	s.log.Debug(q)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "error creating table %v", id)
	}
	s.log.Info("created table ", id)
	return nil
}

func (s *SqlSink) tableColumns(ctx context.Context, id TableID) (map[string]ColumnType, error) {
	q := fmt.Sprintf("select column_name, data_type from %v.information_schema.columns where table_schema = %v and table_name = %v",
		QuoteIdentifier(id.Project), s.dialect.placeholder(1), s.dialect.placeholder(2))
	rows, err := s.db.QueryContext(ctx, q, id.Dataset, id.Table)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading columns of %v", id)
	}
	defer rows.Close()
	retval := make(map[string]ColumnType)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, errors.Wrapf(err, "error reading columns of %v", id)
		}
		retval[name] = s.dialect.columnType(dataType)
	}
	return retval, errors.Wrapf(rows.Err(), "error reading columns of %v", id)
}

func (s *SqlSink) EnsureColumns(ctx context.Context, id TableID, cols []Column) error {
	_, err := s.ensureColumns(ctx, id, cols)
	return err
}

// ensureColumns adds missing cols and returns the resulting column types.
func (s *SqlSink) ensureColumns(ctx context.Context, id TableID, cols []Column) (map[string]ColumnType, error) {
	existing, err := s.tableColumns(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range missingColumns(existing, cols) {
		q := fmt.Sprintf("alter table %v add column %v %v", id.Quoted(), QuoteIdentifier(c.Name), s.dialect.typeNames[c.Type])
		s.log.Debug(q)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return nil, errors.Wrapf(err, "error adding column %v to %v", c.Name, id)
		}
		s.log.Info("added column ", c.Name, " ", c.Type, " to ", id)
		existing[c.Name] = c.Type
	}
	return existing, nil
}

func (s *SqlSink) Query(ctx context.Context, query string, params ...Param) ([]stream.Record, error) {
	q, args, err := BindParams(query, params, s.dialect.placeholder)
	if err != nil {
		return nil, err
	}
	s.log.Debug("query: ", q)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error running query")
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "error reading query columns")
	}
	retval := make([]stream.Record, 0)
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "error scanning query row")
		}
		r := stream.NewRecord()
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				r.SetData(c, string(b))
			} else {
				r.SetData(c, vals[i])
			}
		}
		retval = append(retval, r)
	}
	return retval, errors.Wrap(rows.Err(), "error reading query rows")
}

func (s *SqlSink) Exec(ctx context.Context, query string, params ...Param) (int64, error) {
	q, args, err := BindParams(query, params, s.dialect.placeholder)
	if err != nil {
		return 0, err
	}
	s.log.Debug("exec: ", q)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "error executing statement")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// LoadAppend widens the table first, since DDL commits implicitly on some databases, then inserts all
// rows in batches inside one transaction.
func (s *SqlSink) LoadAppend(ctx context.Context, id TableID, recs []stream.Record) error {
	if len(recs) == 0 {
		return nil
	}
	colTypes, err := s.ensureColumns(ctx, id, InferColumns(recs))
	if err != nil {
		return err
	}
	names, rows, err := rowsForTable(recs, colTypes)
	if err != nil {
		return err
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdentifier(n)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error starting load transaction")
	}
	for start := 0; start < len(rows); start += constants.SinkInsertBatchSizeRows {
		end := start + constants.SinkInsertBatchSizeRows
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(names))
		for _, row := range rows[start:end] {
			ph := make([]string, len(row))
			for i, v := range row {
				args = append(args, v)
				ph[i] = s.dialect.placeholder(len(args))
			}
			values = append(values, "("+strings.Join(ph, ", ")+")")
		}
		q := fmt.Sprintf("insert into %v (%v) values %v", id.Quoted(), strings.Join(quoted, ", "), strings.Join(values, ", "))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "error inserting rows %v to %v into %v", start, end, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "error committing load into %v", id)
	}
	s.log.Info("loaded ", len(rows), " rows into ", id)
	return nil
}

func (s *SqlSink) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn("error closing ", s.dialect.name, " connection: ", err)
	}
}
